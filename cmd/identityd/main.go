package main

import (
	"database/sql"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	identity "github.com/calderhq/identity"
	"github.com/calderhq/identity/social/providers/facebook"
	"github.com/calderhq/identity/social/providers/google"
)

type config struct {
	Address           string   `env:"IDENTITY_ADDRESS" envDefault:":8080"`
	DSN               string   `env:"IDENTITY_DSN" envDefault:"file:identity.db?cache=shared&mode=rwc"`
	Debug             bool     `env:"IDENTITY_DEBUG"`
	SigningKey        string   `env:"IDENTITY_SIGNING_KEY,required"`
	SigningMethod     string   `env:"IDENTITY_SIGNING_METHOD" envDefault:"HS256"`
	TokenExpiration   int      `env:"IDENTITY_TOKEN_EXPIRATION" envDefault:"72"`
	Issuer            string   `env:"IDENTITY_ISSUER" envDefault:"identity"`
	Audience          []string `env:"IDENTITY_AUDIENCE" envDefault:"identity"`
	ResetTokenWindow  string   `env:"IDENTITY_RESET_TOKEN_WINDOW" envDefault:"1h"`
	MinPasswordLength int      `env:"IDENTITY_MIN_PASSWORD_LENGTH" envDefault:"8"`
	DefaultPageSize   int      `env:"IDENTITY_DEFAULT_PAGE_SIZE" envDefault:"10"`
	MaxPageSize       int      `env:"IDENTITY_MAX_PAGE_SIZE" envDefault:"100"`

	GoogleClientID    string `env:"IDENTITY_GOOGLE_CLIENT_ID"`
	FacebookAppID     string `env:"IDENTITY_FACEBOOK_APP_ID"`
	FacebookAppSecret string `env:"IDENTITY_FACEBOOK_APP_SECRET"`
}

func (c config) GetSigningKey() string       { return c.SigningKey }
func (c config) GetSigningMethod() string    { return c.SigningMethod }
func (c config) GetTokenExpiration() int     { return c.TokenExpiration }
func (c config) GetIssuer() string           { return c.Issuer }
func (c config) GetAudience() []string       { return c.Audience }
func (c config) GetResetTokenWindow() string { return c.ResetTokenWindow }
func (c config) GetMinPasswordLength() int   { return c.MinPasswordLength }
func (c config) GetDefaultPageSize() int     { return c.DefaultPageSize }
func (c config) GetMaxPageSize() int         { return c.MaxPageSize }

var _ identity.Config = config{}

func main() {
	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer sqldb.Close()

	db := bun.NewDB(sqldb, sqlitedialect.New())

	repo := identity.NewRepositoryManager(db)
	repo.MustValidate()

	tokens := identity.NewTokenService(
		[]byte(cfg.SigningKey),
		cfg.TokenExpiration,
		cfg.Issuer,
		cfg.Audience,
		nil,
	).WithSigningMethod(cfg.GetSigningMethod())

	auth := identity.NewAuthenticator(repo.Users(), tokens, cfg)

	dispatcher := identity.NewDispatcher()

	identity.RegisterCommand(dispatcher, identity.NewRegisterUserHandler(repo).
		WithMinPasswordLength(cfg.MinPasswordLength))
	identity.RegisterCommand(dispatcher, identity.NewForgotPasswordHandler(repo, nil))
	identity.RegisterCommand(dispatcher, identity.NewResetPasswordHandler(repo).
		WithWindow(cfg.ResetTokenWindow).
		WithMinPasswordLength(cfg.MinPasswordLength))
	identity.RegisterCommand(dispatcher, identity.NewChangePasswordHandler(repo).
		WithMinPasswordLength(cfg.MinPasswordLength))

	identity.RegisterQuery(dispatcher, identity.NewLoginHandler(auth))
	identity.RegisterQuery(dispatcher, identity.NewListUserProductsHandler(repo, cfg))

	if cfg.GoogleClientID != "" {
		verifier, err := google.New(google.Config{ClientID: cfg.GoogleClientID})
		if err != nil {
			log.Fatalf("google verifier: %v", err)
		}
		identity.RegisterQuery(dispatcher, identity.NewGoogleLoginHandler(repo, auth, verifier))
	}

	if cfg.FacebookAppID != "" {
		verifier, err := facebook.New(facebook.Config{
			AppID:     cfg.FacebookAppID,
			AppSecret: cfg.FacebookAppSecret,
		})
		if err != nil {
			log.Fatalf("facebook verifier: %v", err)
		}
		identity.RegisterQuery(dispatcher, identity.NewFacebookLoginHandler(repo, auth, verifier))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message":     "Internal server error",
				"status_code": fiber.StatusInternalServerError,
			})
		},
	})

	app.Use(recover.New())

	controller := identity.NewHTTPController(dispatcher, tokens).
		WithDebug(cfg.Debug)
	controller.RegisterRoutes(app)

	log.Printf("listening on %s", cfg.Address)
	if err := app.Listen(cfg.Address); err != nil {
		log.Fatalf("server: %v", err)
	}
}
