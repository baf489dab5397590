package identity

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// HTTPController exposes the engines as a JSON API. Handlers only parse,
// validate and translate; all behavior lives behind the dispatcher.
type HTTPController struct {
	Debug      bool
	Logger     Logger
	dispatcher *Dispatcher
	tokens     TokenService
}

func NewHTTPController(dispatcher *Dispatcher, tokens TokenService) *HTTPController {
	return &HTTPController{
		Logger:     defLogger{},
		dispatcher: dispatcher,
		tokens:     tokens,
	}
}

func (a *HTTPController) WithLogger(logger Logger) *HTTPController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *HTTPController) WithDebug(debug bool) *HTTPController {
	a.Debug = debug
	return a
}

// RegisterRoutes mounts the API under /api/v1.
func (a *HTTPController) RegisterRoutes(app *fiber.App) {
	auth := app.Group("/api/v1/auth")

	auth.Post("/login", a.LoginPost)
	auth.Post("/register", a.RegisterPost)
	auth.Post("/google", a.GoogleLoginPost)
	auth.Post("/facebook", a.FacebookLoginPost)
	auth.Put("/password", a.RequireSession, a.ChangePasswordPut)
	auth.Post("/:email/forgot-password", a.ForgotPasswordPost)
	auth.Put("/reset-password", a.ResetPasswordPut)

	app.Get("/api/v1/users/:id/products", a.UserProductsGet)
}

const sessionLocalKey = "identity:session"

// RequireSession guards authenticated routes. It accepts a bearer token in
// the Authorization header and stores the verified claims in locals.
func (a *HTTPController) RequireSession(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)

	token := ""
	if len(header) > 7 && strings.EqualFold(header[0:7], "bearer ") {
		token = header[7:]
	}

	if token == "" {
		return writeAuthError(c, "missing or malformed JWT")
	}

	claims, err := a.tokens.Validate(token)
	if err != nil {
		if IsTokenExpiredError(err) {
			return writeAuthError(c, "token is expired")
		} else if IsMalformedError(err) {
			return writeAuthError(c, "missing or malformed JWT")
		}
		return writeAuthError(c, "invalid or expired token")
	}

	c.Locals(sessionLocalKey, claims)

	return c.Next()
}

// SessionFromContext recovers the claims RequireSession stored.
func SessionFromContext(c *fiber.Ctx) (*SessionClaims, error) {
	claims, ok := c.Locals(sessionLocalKey).(*SessionClaims)
	if !ok || claims == nil {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// LoginPayload is the credential pair body
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *HTTPController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return writeBadRequest(c, "Failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return writeAuthError(c, "Invalid credentials")
	}

	session, err := QueryAs[*SessionResult](c.Context(), a.dispatcher, LoginMessage{
		Email:    payload.Email,
		Password: payload.Password,
	})

	if err != nil {
		return a.writeError(c, err)
	}

	a.debugJSON(session)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":      "Login successful",
		"access_token": session.AccessToken,
		"expires_at":   session.ExpiresAt,
		"status_code":  fiber.StatusOK,
		"data": fiber.Map{
			"user": session.User,
		},
	})
}

// RegisterPayload is the registration body
type RegisterPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number"`
	Password  string `json:"password"`
}

// Validate will validate the payload
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *HTTPController) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegisterPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return writeBadRequest(c, "Failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message":     err.Error(),
			"status_code": fiber.StatusUnprocessableEntity,
		})
	}

	var profile *Profile
	err := a.dispatcher.Dispatch(c.Context(), RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
		OnResponse: func(p *Profile) {
			profile = p
		},
	})

	if err != nil {
		return a.writeError(c, err)
	}

	a.debugJSON(profile)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Registration successful",
		"status_code": fiber.StatusCreated,
		"data": fiber.Map{
			"user": profile,
		},
	})
}

// SocialTokenPayload carries a provider-issued token.
type SocialTokenPayload struct {
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
}

func (a *HTTPController) GoogleLoginPost(c *fiber.Ctx) error {
	payload := new(SocialTokenPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("google login parse payload", "error", err)
		return writeBadRequest(c, "Failed to parse request body")
	}

	session, err := QueryAs[*SessionResult](c.Context(), a.dispatcher, GoogleLoginMessage{
		IDToken: payload.IDToken,
	})

	if err != nil {
		return a.writeError(c, err)
	}

	return a.writeSession(c, session)
}

func (a *HTTPController) FacebookLoginPost(c *fiber.Ctx) error {
	payload := new(SocialTokenPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("facebook login parse payload", "error", err)
		return writeBadRequest(c, "Failed to parse request body")
	}

	session, err := QueryAs[*SessionResult](c.Context(), a.dispatcher, FacebookLoginMessage{
		AccessToken: payload.AccessToken,
	})

	if err != nil {
		return a.writeError(c, err)
	}

	return a.writeSession(c, session)
}

// ChangePasswordPayload is the authenticated password change body
type ChangePasswordPayload struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Validate will validate the payload
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
	)
}

func (a *HTTPController) ChangePasswordPut(c *fiber.Ctx) error {
	claims, err := SessionFromContext(c)
	if err != nil {
		return writeAuthError(c, "invalid or expired token")
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return writeAuthError(c, "invalid or expired token")
	}

	payload := new(ChangePasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("change password parse payload", "error", err)
		return writeBadRequest(c, "Failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return writeBadRequest(c, err.Error())
	}

	err = a.dispatcher.Dispatch(c.Context(), ChangePasswordMessage{
		UserID:      userID,
		OldPassword: payload.OldPassword,
		NewPassword: payload.NewPassword,
	})

	if err != nil {
		return a.writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":     "Password changed successfully",
		"status_code": fiber.StatusOK,
	})
}

func (a *HTTPController) ForgotPasswordPost(c *fiber.Ctx) error {
	email := c.Params("email")

	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return writeBadRequest(c, "Please provide a valid email address")
	}

	err := a.dispatcher.Dispatch(c.Context(), ForgotPasswordMessage{
		Email: email,
	})

	if err != nil {
		return a.writeError(c, err)
	}

	// Same body for known and unknown addresses.
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":     "If the email exists, a reset link has been sent",
		"status_code": fiber.StatusOK,
	})
}

// ResetPasswordPayload finalizes a password reset
type ResetPasswordPayload struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Validate will validate the payload
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
	)
}

func (a *HTTPController) ResetPasswordPut(c *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("reset password parse payload", "error", err)
		return writeBadRequest(c, "Failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return writeBadRequest(c, err.Error())
	}

	err := a.dispatcher.Dispatch(c.Context(), ResetPasswordMessage{
		Token:       payload.Token,
		NewPassword: payload.NewPassword,
	})

	if err != nil {
		return a.writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":     "Password reset successfully",
		"status_code": fiber.StatusOK,
	})
}

func (a *HTTPController) UserProductsGet(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeBadRequest(c, "Invalid user id")
	}

	result, err := QueryAs[*PagedResult[*Product]](c.Context(), a.dispatcher, ListUserProductsMessage{
		UserID:     userID,
		PageNumber: c.QueryInt("page", 0),
		PageSize:   c.QueryInt("page_size", 0),
	})

	if err != nil {
		return a.writeError(c, err)
	}

	a.debugJSON(result)

	return c.Status(fiber.StatusOK).JSON(result)
}

func (a *HTTPController) writeSession(c *fiber.Ctx, session *SessionResult) error {
	a.debugJSON(session)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":      "Login successful",
		"access_token": session.AccessToken,
		"expires_at":   session.ExpiresAt,
		"status_code":  fiber.StatusOK,
		"data": fiber.Map{
			"user": session.User,
		},
	})
}

// writeError maps an engine error onto the wire contract. Auth failures get
// the three field body, everything else the two field body. Internal detail
// never leaves the process.
func (a *HTTPController) writeError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		a.Logger.Error("unhandled error", "error", err)
		return writeInternalError(c)
	}

	status := statusForCategory(richErr.Category)

	if status == fiber.StatusInternalServerError {
		a.Logger.Error("internal error",
			"category", string(richErr.Category),
			"error", richErr,
		)
		return writeInternalError(c)
	}

	if status == fiber.StatusUnauthorized {
		return writeAuthError(c, richErr.Message)
	}

	return c.Status(status).JSON(fiber.Map{
		"message":     richErr.Message,
		"status_code": status,
	})
}

func statusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryNotFound:
		// Kept at 400: clients treat missing resources on these routes as
		// bad requests.
		return fiber.StatusBadRequest
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func writeAuthError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message":     message,
		"error":       "authentication failed",
		"status_code": fiber.StatusUnauthorized,
	})
}

func writeBadRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message":     message,
		"status_code": fiber.StatusBadRequest,
	})
}

func writeInternalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message":     "Internal server error",
		"status_code": fiber.StatusInternalServerError,
	})
}

func (a *HTTPController) debugJSON(payload any) {
	if !a.Debug {
		return
	}
	fmt.Println(print.MaybePrettyJSON(payload))
}
