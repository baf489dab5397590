package identity_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	identity "github.com/calderhq/identity"
)

type testConfig struct {
	signingKey        string
	tokenExpiration   int
	issuer            string
	audience          []string
	resetWindow       string
	minPasswordLength int
	defaultPageSize   int
	maxPageSize       int
}

func newTestConfig() testConfig {
	return testConfig{
		signingKey:        "test-signing-key",
		tokenExpiration:   24,
		issuer:            "test-issuer",
		audience:          []string{"test:audience"},
		resetWindow:       "1h",
		minPasswordLength: 8,
		defaultPageSize:   10,
		maxPageSize:       100,
	}
}

func (c testConfig) GetSigningKey() string       { return c.signingKey }
func (c testConfig) GetSigningMethod() string    { return "HS256" }
func (c testConfig) GetTokenExpiration() int     { return c.tokenExpiration }
func (c testConfig) GetIssuer() string           { return c.issuer }
func (c testConfig) GetAudience() []string       { return c.audience }
func (c testConfig) GetResetTokenWindow() string { return c.resetWindow }
func (c testConfig) GetMinPasswordLength() int   { return c.minPasswordLength }
func (c testConfig) GetDefaultPageSize() int     { return c.defaultPageSize }
func (c testConfig) GetMaxPageSize() int         { return c.maxPageSize }

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// fakeUsers is an in-memory Users store. Only the methods the engines call
// are implemented; anything else panics through the embedded nil interface.
type fakeUsers struct {
	identity.Users
	mu    sync.Mutex
	users map[uuid.UUID]*identity.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uuid.UUID]*identity.User{}}
}

func (f *fakeUsers) add(user *identity.User) *identity.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID] = user
	return user
}

func notFound() error {
	return repository.NewRecordNotFound()
}

func (f *fakeUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, notFound()
	}

	if user, ok := f.users[uid]; ok {
		return user, nil
	}
	return nil, notFound()
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, notFound()
}

func (f *fakeUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*identity.User, error) {
	return f.GetByEmail(ctx, email)
}

func (f *fakeUsers) GetByResetToken(ctx context.Context, token string) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.ResetToken != nil && *user.ResetToken == token {
			return user, nil
		}
	}
	return nil, notFound()
}

func (f *fakeUsers) Create(ctx context.Context, record *identity.User, criteria ...repository.InsertCriteria) (*identity.User, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return f.add(record), nil
}

func (f *fakeUsers) CreateTx(ctx context.Context, tx bun.IDB, record *identity.User, criteria ...repository.InsertCriteria) (*identity.User, error) {
	return f.Create(ctx, record)
}

func (f *fakeUsers) TrackAttemptedLogin(ctx context.Context, user *identity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if stored, ok := f.users[user.ID]; ok {
		stored.LoginAttempts = user.LoginAttempts + 1
		now := time.Now()
		stored.LoginAttemptAt = &now
	}
	return nil
}

func (f *fakeUsers) TrackSuccessfulLogin(ctx context.Context, user *identity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if stored, ok := f.users[user.ID]; ok {
		now := time.Now()
		stored.LoggedInAt = &now
		stored.LoginAttempts = 0
		stored.LoginAttemptAt = nil
	}
	return nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.users[id]
	if !ok {
		return notFound()
	}
	stored.PasswordHash = passwordHash
	return nil
}

func (f *fakeUsers) SetResetToken(ctx context.Context, id uuid.UUID, token string, issuedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.users[id]
	if !ok {
		return notFound()
	}
	stored.ResetToken = &token
	stored.ResetTokenAt = &issuedAt
	return nil
}

func (f *fakeUsers) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if stored, ok := f.users[id]; ok {
		stored.ResetToken = nil
		stored.ResetTokenAt = nil
	}
	return nil
}

func (f *fakeUsers) ConsumeResetToken(ctx context.Context, token, passwordHash string) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.ResetToken != nil && *user.ResetToken == token {
			user.PasswordHash = passwordHash
			user.ResetToken = nil
			user.ResetTokenAt = nil
			return user, nil
		}
	}
	return nil, notFound()
}

// fakeProducts keeps an ordered product list and answers the paged query
// in-memory; only the equality clause on user_id is interpreted.
type fakeProducts struct {
	identity.Products
	mu    sync.Mutex
	items []*identity.Product
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{}
}

func (f *fakeProducts) add(p *identity.Product) *identity.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.items = append(f.items, p)
	return p
}

func (f *fakeProducts) Query(ctx context.Context, spec *identity.Specification, page identity.Page) (*identity.PagedResult[*identity.Product], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matches := []*identity.Product{}
	for _, item := range f.items {
		if matchesSpec(item, spec) {
			matches = append(matches, item)
		}
	}

	total := len(matches)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}

	return identity.NewPagedResult(matches[start:end], page, total), nil
}

func matchesSpec(p *identity.Product, spec *identity.Specification) bool {
	if spec == nil {
		return true
	}
	for _, clause := range spec.Clauses() {
		if clause.Field == "user_id" && clause.Op == identity.OpEqual {
			id, ok := clause.Value.(uuid.UUID)
			if !ok || p.UserID != id {
				return false
			}
		}
	}
	return true
}

type fakeSocialAccounts struct {
	identity.SocialAccounts
	mu    sync.Mutex
	links []*identity.SocialAccount
}

func newFakeSocialAccounts() *fakeSocialAccounts {
	return &fakeSocialAccounts{}
}

func (f *fakeSocialAccounts) GetByProviderSubject(ctx context.Context, provider, providerUserID string) (*identity.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, link := range f.links {
		if link.Provider == provider && link.ProviderUserID == providerUserID {
			return link, nil
		}
	}
	return nil, notFound()
}

func (f *fakeSocialAccounts) LinkTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, provider, providerUserID, email string) (*identity.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	link := &identity.SocialAccount{
		ID:             uuid.New(),
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
		Email:          email,
	}
	f.links = append(f.links, link)
	return link, nil
}

func (f *fakeSocialAccounts) Link(ctx context.Context, userID uuid.UUID, provider, providerUserID, email string) (*identity.SocialAccount, error) {
	return f.LinkTx(ctx, nil, userID, provider, providerUserID, email)
}

// fakeRepo wires the in-memory stores behind the RepositoryManager surface.
// RunInTx has no transactional semantics; it just invokes the callback.
type fakeRepo struct {
	users    *fakeUsers
	products *fakeProducts
	social   *fakeSocialAccounts
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    newFakeUsers(),
		products: newFakeProducts(),
		social:   newFakeSocialAccounts(),
	}
}

func (f *fakeRepo) Validate() error { return nil }
func (f *fakeRepo) MustValidate()   {}

func (f *fakeRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	var tx bun.Tx
	return fn(ctx, tx)
}

func (f *fakeRepo) Users() identity.Users                   { return f.users }
func (f *fakeRepo) Products() identity.Products             { return f.products }
func (f *fakeRepo) SocialAccounts() identity.SocialAccounts { return f.social }

func seedUser(t interface{ Fatalf(string, ...any) }, repo *fakeRepo, email, password string) *identity.User {
	hash, err := identity.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	now := time.Now()
	return repo.users.add(&identity.User{
		FirstName:    "Pepe",
		LastName:     "Rone",
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	})
}
