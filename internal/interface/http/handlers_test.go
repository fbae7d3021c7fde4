package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ecommerce-auth/config"
	"github.com/oksasatya/go-ecommerce-auth/internal/application"
	"github.com/oksasatya/go-ecommerce-auth/internal/infrastructure/memory"
	"github.com/oksasatya/go-ecommerce-auth/internal/interface/middleware"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
	"github.com/oksasatya/go-ecommerce-auth/pkg/response"
	"github.com/oksasatya/go-ecommerce-auth/pkg/validation"
)

type testServer struct {
	engine *gin.Engine
	jwt    *helpers.JWTManager
	repo   *memory.UserRepository
}

func newTestServer(t *testing.T, env string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()
	logger := helpers.NewDiscardLogger()
	response.Setup(logger, env == "production")

	cfg := &config.Config{Env: env, APIVersion: "v1", FrontendURL: "http://localhost:5173", ResetTokenTTL: time.Hour}
	r := memory.NewUserRepository()
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 168*time.Hour)
	authSvc := application.NewAuthService(r, &helpers.BcryptHasher{Cost: bcrypt.MinCost}, jwt, application.NewResetTokenManager(r, time.Hour), cfg, logger)
	userSvc := application.NewUserService(r, nil, "", nil, "", logger)

	auth := NewAuthHandler(authSvc, cfg, logger)
	users := NewUserHandler(userSvc, logger)
	health := NewHealthHandler(cfg)

	e := gin.New()
	e.NoRoute(response.RouteNotFound)
	e.GET("/health", health.Health)
	api := e.Group("/api/v1")
	api.GET("", health.Info)
	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)
	api.POST("/auth/refresh", auth.Refresh)
	api.POST("/auth/logout", auth.Logout)
	api.POST("/auth/forgot-password", auth.ForgotPassword)
	api.POST("/auth/reset-password", auth.ResetPassword)

	protected := api.Group("", middleware.Authenticate(jwt))
	protected.GET("/auth/me", auth.Me)
	protected.POST("/auth/change-password", auth.ChangePassword)
	protected.PUT("/users/me", users.UpdateProfile)
	protected.POST("/users/me/avatar", users.UploadAvatar)
	protected.POST("/users/me/addresses", users.AddAddress)
	protected.PUT("/users/me/addresses/:addressId", users.UpdateAddress)
	protected.DELETE("/users/me/addresses/:addressId", users.RemoveAddress)
	protected.GET("/users/search", middleware.Authorize("admin"), users.Search)

	return &testServer{engine: e, jwt: jwt, repo: r}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (s *testServer) register(t *testing.T, name, email, password string) map[string]any {
	t.Helper()
	w, body := s.do(t, http.MethodPost, "/api/v1/auth/register", gin.H{"name": name, "email": email, "password": password}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return body
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, "development")

	body := s.register(t, "Ana", "Ana@Example.com", "secret123")
	assert.Equal(t, application.MsgRegistered, body["message"])
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "ana@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")

	w, body := s.do(t, http.MethodPost, "/api/v1/auth/register", gin.H{"name": "Ana", "email": "ana@example.com", "password": "secret123"}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, application.MsgEmailTaken, body["message"])
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t, "development")

	tests := []struct {
		name  string
		body  gin.H
		field string
	}{
		{"bad email", gin.H{"name": "Ana", "email": "nope", "password": "secret123"}, "email"},
		{"short password", gin.H{"name": "Ana", "email": "ana@x.com", "password": "short"}, "password"},
		{"short name", gin.H{"name": "A", "email": "ana@x.com", "password": "secret123"}, "name"},
		{"name short after trimming", gin.H{"name": "   A   ", "email": "ana@x.com", "password": "secret123"}, "name"},
		{"password over bcrypt limit", gin.H{"name": "Ana", "email": "ana@x.com", "password": strings.Repeat("a", 100)}, "password"},
		{"missing name", gin.H{"email": "ana@x.com", "password": "secret123"}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := s.do(t, http.MethodPost, "/api/v1/auth/register", tt.body, "")
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, validation.MsgInvalidInput, body["message"])
			msgs, ok := body["messages"].([]any)
			require.True(t, ok)
			var fields []string
			for _, m := range msgs {
				fields = append(fields, m.(map[string]any)["field"].(string))
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, "development")
	s.register(t, "Ana", "ana@x.com", "secret123")

	w, body := s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "ana@x.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, application.MsgLoggedIn, body["message"])
	assert.NotNil(t, body["user"].(map[string]any)["lastLogin"])

	wrongPwd, b1 := s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "ana@x.com", "password": "wrongpass"}, "")
	unknown, b2 := s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "bob@x.com", "password": "secret123"}, "")
	assert.Equal(t, http.StatusUnauthorized, wrongPwd.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, b1, b2, "unknown email and wrong password look the same")
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t, "development")
	reg := s.register(t, "Ana", "ana@x.com", "secret123")
	refresh := reg["refreshToken"].(string)

	w, body := s.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgRefreshMissing, body["message"])

	w, body = s.do(t, http.MethodPost, "/api/v1/auth/refresh", gin.H{"refreshToken": "garbage"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, application.MsgInvalidRefresh, body["message"])

	w, body = s.do(t, http.MethodPost, "/api/v1/auth/refresh", gin.H{"refreshToken": reg["accessToken"]}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "access tokens are not refresh tokens")

	w, body = s.do(t, http.MethodPost, "/api/v1/auth/refresh", gin.H{"refreshToken": refresh}, "")
	require.Equal(t, http.StatusOK, w.Code)
	access := body["accessToken"].(string)
	assert.NotEmpty(t, access)
	assert.NotContains(t, body, "refreshToken")

	w, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, access)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = s.do(t, http.MethodPost, "/api/v1/auth/logout", gin.H{"refreshToken": refresh}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, application.MsgLoggedOut, body["message"])

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", gin.H{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMe_RequiresBearer(t *testing.T) {
	s := newTestServer(t, "development")

	w, body := s.do(t, http.MethodGet, "/api/v1/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.MsgTokenMissing, body["message"])

	w, body = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.MsgTokenInvalid, body["message"])

	tok, _, err := s.jwt.GenerateAccessToken("00000000-0000-0000-0000-000000000000", "ghost@x.com", "user")
	require.NoError(t, err)
	w, body = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, application.MsgUserNotFound, body["message"])
}

func TestForgotPassword_EchoesTokenOnlyInDevelopment(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		t.Run(env, func(t *testing.T) {
			s := newTestServer(t, env)
			s.register(t, "Ana", "ana@x.com", "secret123")

			w, known := s.do(t, http.MethodPost, "/api/v1/auth/forgot-password", gin.H{"email": "ana@x.com"}, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, application.MsgForgotPassword, known["message"])

			w, unknown := s.do(t, http.MethodPost, "/api/v1/auth/forgot-password", gin.H{"email": "bob@x.com"}, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, gin.H{"message": application.MsgForgotPassword}, gin.H(unknown))

			if env == "development" {
				assert.NotEmpty(t, known["resetToken"])
				assert.Contains(t, known["resetUrl"], "http://localhost:5173/reset-password?token=")
			} else {
				assert.NotContains(t, known, "resetToken")
				assert.NotContains(t, known, "resetUrl")
			}
		})
	}
}

// Ana registers, forgets her password, resets it and changes it again.
func TestPasswordLifecycle(t *testing.T) {
	s := newTestServer(t, "development")
	s.register(t, "Ana", "ana@x.com", "secret123")

	_, forgot := s.do(t, http.MethodPost, "/api/v1/auth/forgot-password", gin.H{"email": "ana@x.com"}, "")
	token := forgot["resetToken"].(string)

	w, body := s.do(t, http.MethodPost, "/api/v1/auth/reset-password", gin.H{"token": token, "password": "newpass123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, application.MsgPasswordUpdated, body["message"])

	w, body = s.do(t, http.MethodPost, "/api/v1/auth/reset-password", gin.H{"token": token, "password": "another123"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "reset secrets are single use")
	assert.Equal(t, application.MsgInvalidResetToken, body["message"])

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "ana@x.com", "password": "secret123"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, login := s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "ana@x.com", "password": "newpass123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	access := login["accessToken"].(string)

	w, body = s.do(t, http.MethodPost, "/api/v1/auth/change-password", gin.H{"currentPassword": "wrongpass", "newPassword": "third1234"}, access)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, application.MsgWrongPassword, body["message"])

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/change-password", gin.H{"currentPassword": "newpass123", "newPassword": "third1234"}, access)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "ana@x.com", "password": "third1234"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProfileAndAddresses(t *testing.T) {
	s := newTestServer(t, "development")
	access := s.register(t, "Ana", "ana@x.com", "secret123")["accessToken"].(string)

	w, body := s.do(t, http.MethodPut, "/api/v1/users/me", gin.H{"name": "Ana María"}, access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ana María", body["user"].(map[string]any)["name"])

	w, _ = s.do(t, http.MethodPut, "/api/v1/users/me", gin.H{"name": "A"}, access)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodPut, "/api/v1/users/me", gin.H{"name": "   A   "}, access)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodPut, "/api/v1/users/me", gin.H{"name": ""}, access)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodPost, "/api/v1/users/me/addresses", gin.H{"street": "Calle 1", "city": "Puebla", "state": "Puebla", "zipCode": "72000"}, access)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	list := body["addresses"].([]any)
	require.Len(t, list, 1)
	addr := list[0].(map[string]any)
	assert.Equal(t, true, addr["isDefault"])
	id := addr["id"].(string)

	w, body = s.do(t, http.MethodPut, "/api/v1/users/me/addresses/"+id, gin.H{"street": "Calle 2", "city": "Puebla", "state": "Puebla", "zipCode": "72000"}, access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Calle 2", body["addresses"].([]any)[0].(map[string]any)["street"])

	w, body = s.do(t, http.MethodDelete, "/api/v1/users/me/addresses/missing", nil, access)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, application.MsgAddressNotFound, body["message"])

	w, body = s.do(t, http.MethodDelete, "/api/v1/users/me/addresses/"+id, nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["addresses"])

	w, body = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	me := body["user"].(map[string]any)
	assert.Equal(t, "Ana María", me["name"])
	assert.Contains(t, me, "createdAt")
}

func TestUploadAvatar(t *testing.T) {
	s := newTestServer(t, "development")
	access := s.register(t, "Ana", "ana@x.com", "secret123")["accessToken"].(string)

	upload := func(contentType string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="avatar"; filename="a.png"`}
		h["Content-Type"] = []string{contentType}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write([]byte("png-bytes"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/me/avatar", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+access)
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusBadRequest, upload("text/plain").Code)

	// No bucket is configured in tests.
	w := upload("image/png")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var failed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failed))
	assert.Equal(t, application.MsgStorageDisabled, failed["message"])

	w, _ = s.do(t, http.MethodPost, "/api/v1/users/me/avatar", nil, access)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadAvatar_StorageMessageSurvivesProduction(t *testing.T) {
	s := newTestServer(t, "production")
	access := s.register(t, "Ana", "ana@x.com", "secret123")["accessToken"].(string)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="avatar"; filename="a.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/me/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), application.MsgStorageDisabled)
}

func TestSearch_AdminOnly(t *testing.T) {
	s := newTestServer(t, "development")
	access := s.register(t, "Ana", "ana@x.com", "secret123")["accessToken"].(string)

	w, body := s.do(t, http.MethodGet, "/api/v1/users/search?q=ana", nil, access)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, middleware.MsgNotPermitted, body["message"])

	admin, _, err := s.jwt.GenerateAccessToken("admin-id", "admin@x.com", "admin")
	require.NoError(t, err)
	w, body = s.do(t, http.MethodGet, "/api/v1/users/search?q=ana", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["users"])

	w, _ = s.do(t, http.MethodGet, "/api/v1/users/search", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndInfo(t *testing.T) {
	s := newTestServer(t, "development")

	w, body := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "Server is running", body["message"])
	assert.Equal(t, "development", body["environment"])
	assert.Equal(t, APIVersion, body["version"])

	w, body = s.do(t, http.MethodGet, "/api/v1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Yard Sale API v1", body["message"])
	assert.Equal(t, "/api/v1/auth", body["endpoints"].(map[string]any)["auth"])

	w, body = s.do(t, http.MethodGet, "/api/v1/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Cannot GET /api/v1/nope", body["message"])
}
