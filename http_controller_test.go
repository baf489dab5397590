package identity_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identity "github.com/calderhq/identity"
)

type testServer struct {
	app    *fiber.App
	repo   *fakeRepo
	tokens identity.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := newFakeRepo()
	auth, tokens := newTestAuthenticator(repo)

	dispatcher := identity.NewDispatcher()
	identity.RegisterCommand(dispatcher, identity.NewRegisterUserHandler(repo))
	identity.RegisterCommand(dispatcher, identity.NewForgotPasswordHandler(repo, newCapturingNotifier()).WithLogger(testLogger{}))
	identity.RegisterCommand(dispatcher, identity.NewResetPasswordHandler(repo).WithLogger(testLogger{}))
	identity.RegisterCommand(dispatcher, identity.NewChangePasswordHandler(repo))
	identity.RegisterQuery(dispatcher, identity.NewLoginHandler(auth))
	identity.RegisterQuery(dispatcher, identity.NewListUserProductsHandler(repo, newTestConfig()))

	app := fiber.New()
	controller := identity.NewHTTPController(dispatcher, tokens).WithLogger(testLogger{})
	controller.RegisterRoutes(app)

	return &testServer{app: app, repo: repo, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, payload any, headers ...map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for _, set := range headers {
		for k, v := range set {
			req.Header.Set(k, v)
		}
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	decoded := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}

	return resp, decoded
}

func TestLoginEndpoint(t *testing.T) {
	srv := newTestServer(t)
	seedUser(t, srv.repo, "pepe.rone@example.com", "secretpassword123")

	t.Run("success", func(t *testing.T) {
		resp, body := srv.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    "pepe.rone@example.com",
			"password": "secretpassword123",
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, body["access_token"])
		data := body["data"].(map[string]any)
		user := data["user"].(map[string]any)
		assert.Equal(t, "pepe.rone@example.com", user["email"])
	})

	t.Run("wrong password returns the auth failure shape", func(t *testing.T) {
		resp, body := srv.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    "pepe.rone@example.com",
			"password": "not-the-password",
		})

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.NotEmpty(t, body["message"])
		assert.NotEmpty(t, body["error"])
		assert.EqualValues(t, http.StatusUnauthorized, body["status_code"])
		assert.Empty(t, body["access_token"])
	})

	t.Run("unknown email returns the same shape", func(t *testing.T) {
		resp, body := srv.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    "nobody@example.com",
			"password": "secretpassword123",
		})

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.NotEmpty(t, body["message"])
		assert.NotEmpty(t, body["error"])
		assert.EqualValues(t, http.StatusUnauthorized, body["status_code"])
	})
}

func TestRegisterEndpoint(t *testing.T) {
	srv := newTestServer(t)

	payload := map[string]string{
		"first_name": "Pepe",
		"last_name":  "Rone",
		"email":      "pepe.rone@example.com",
		"password":   "secretpassword123",
	}

	t.Run("created", func(t *testing.T) {
		resp, body := srv.do(t, http.MethodPost, "/api/v1/auth/register", payload)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		data := body["data"].(map[string]any)
		user := data["user"].(map[string]any)
		assert.Equal(t, "pepe.rone@example.com", user["email"])
		assert.NotContains(t, user, "password_hash")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		resp, body := srv.do(t, http.MethodPost, "/api/v1/auth/register", payload)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.EqualValues(t, http.StatusConflict, body["status_code"])
	})

	t.Run("invalid payload", func(t *testing.T) {
		resp, _ := srv.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
			"email": "not-an-email",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestForgotPasswordEndpointIsUniform(t *testing.T) {
	srv := newTestServer(t)
	seedUser(t, srv.repo, "pepe.rone@example.com", "secretpassword123")

	known, knownBody := srv.do(t, http.MethodPost, "/api/v1/auth/pepe.rone@example.com/forgot-password", nil)
	unknown, unknownBody := srv.do(t, http.MethodPost, "/api/v1/auth/nobody@example.com/forgot-password", nil)

	assert.Equal(t, http.StatusOK, known.StatusCode)
	assert.Equal(t, http.StatusOK, unknown.StatusCode)
	assert.Equal(t, knownBody["message"], unknownBody["message"])
}

func TestResetPasswordEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPut, "/api/v1/auth/reset-password", map[string]string{
		"token":        "never-issued",
		"new_password": "anothersecret456",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["message"])
	assert.EqualValues(t, http.StatusBadRequest, body["status_code"])
	assert.NotContains(t, body, "error")
}

func TestChangePasswordEndpoint(t *testing.T) {
	srv := newTestServer(t)
	user := seedUser(t, srv.repo, "pepe.rone@example.com", "secretpassword123")

	payload := map[string]string{
		"old_password": "secretpassword123",
		"new_password": "anothersecret456",
	}

	t.Run("requires a bearer token", func(t *testing.T) {
		resp, body := srv.do(t, http.MethodPut, "/api/v1/auth/password", payload)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.NotEmpty(t, body["error"])
	})

	t.Run("rejects garbage tokens", func(t *testing.T) {
		resp, _ := srv.do(t, http.MethodPut, "/api/v1/auth/password", payload, map[string]string{
			fiber.HeaderAuthorization: "Bearer not-a-token",
		})

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("changes the password for the session user", func(t *testing.T) {
		token, err := srv.tokens.Generate(user)
		require.NoError(t, err)

		resp, _ := srv.do(t, http.MethodPut, "/api/v1/auth/password", payload, map[string]string{
			fiber.HeaderAuthorization: "Bearer " + token,
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NoError(t, identity.ComparePasswordAndHash("anothersecret456", user.PasswordHash))
	})
}

func TestUserProductsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	user := seedUser(t, srv.repo, "pepe.rone@example.com", "secretpassword123")
	seedProducts(srv.repo, user.ID, 7)

	t.Run("pages through owned products", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/users/%s/products?page=2&page_size=3", user.ID)
		resp, body := srv.do(t, http.MethodGet, path, nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 7, body["total_count"])
		assert.EqualValues(t, 3, body["total_pages"])
		assert.EqualValues(t, 2, body["page_number"])
		assert.Len(t, body["items"], 3)
	})

	t.Run("invalid user id", func(t *testing.T) {
		resp, _ := srv.do(t, http.MethodGet, "/api/v1/users/not-a-uuid/products", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp, _ := srv.do(t, http.MethodGet, "/api/v1/users/51f46363-14ba-4a74-88fa-04a78a1be16b/products", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
