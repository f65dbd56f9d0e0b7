package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardistry-catalog/internal/domains/session/model"
	"cardistry-catalog/internal/shared/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	signedOut []string
}

func (f *fakeService) Register(_ context.Context, req model.RegisterRequest) (*model.Identity, error) {
	if req.Email == "taken@example.com" {
		return nil, model.NewAccountExistsError()
	}
	if req.Password == "" {
		return nil, model.NewInvalidInputError(assert.AnError)
	}
	return &model.Identity{UID: "u2", DisplayName: req.DisplayName, Email: req.Email}, nil
}

func (f *fakeService) SignIn(_ context.Context, req model.SignInRequest) (*model.SignInResponse, error) {
	if req.Password != "correct horse" {
		return nil, model.NewAuthFailure("invalid email or password")
	}
	return &model.SignInResponse{
		Token:     "tok",
		ExpiresAt: time.Now().Add(time.Hour),
		Identity:  model.Identity{UID: "u1", DisplayName: "Ada", Email: req.Email},
	}, nil
}

func (f *fakeService) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return nil
}

func (f *fakeService) Current(_ context.Context, token string) (*model.Session, error) {
	if token != "tok" {
		return nil, nil
	}
	return &model.Session{ID: "s1", Identity: model.Identity{UID: "u1", DisplayName: "Ada"}}, nil
}

func (f *fakeService) Subscribe() (<-chan model.IdentityChange, func()) {
	ch := make(chan model.IdentityChange)
	return ch, func() {}
}

func newRouter(svc *fakeService) *gin.Engine {
	h := NewHandler(svc, false)
	r := gin.New()
	r.Use(middleware.OptionalAuth(svc))
	r.POST("/auth/register", h.Register)
	r.POST("/auth/sign-in", h.SignIn)
	r.POST("/auth/sign-out", h.SignOut)
	r.GET("/auth/me", h.Me)
	return r
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var res struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.Error.Code
}

func TestSignIn_SetsCookie(t *testing.T) {
	r := newRouter(&fakeService{})

	w := postJSON(r, "/auth/sign-in", model.SignInRequest{Email: "ada@example.com", Password: "correct horse"})
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Positive(t, cookies[0].MaxAge)
}

func TestSignIn_Rejected(t *testing.T) {
	r := newRouter(&fakeService{})

	w := postJSON(r, "/auth/sign-in", model.SignInRequest{Email: "ada@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, model.ErrCodeAuthFailure, errorCode(t, w))
	assert.Empty(t, w.Result().Cookies())
}

func TestSignIn_MalformedBody(t *testing.T) {
	r := newRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_StatusMapping(t *testing.T) {
	r := newRouter(&fakeService{})

	w := postJSON(r, "/auth/register", model.RegisterRequest{Email: "new@example.com", Password: "longenough", DisplayName: "New"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(r, "/auth/register", model.RegisterRequest{Email: "taken@example.com", Password: "longenough", DisplayName: "X"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, model.ErrCodeAccountExists, errorCode(t, w))

	w = postJSON(r, "/auth/register", model.RegisterRequest{Email: "new@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, model.ErrCodeInvalidInput, errorCode(t, w))
}

func TestSignOut_RevokesAndClearsCookie(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "tok"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"tok"}, svc.signedOut)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestMe(t *testing.T) {
	r := newRouter(&fakeService{})

	t.Run("signed in", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer tok")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var res struct {
			Data *model.Session `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.NotNil(t, res.Data)
		assert.Equal(t, "Ada", res.Data.Identity.DisplayName)
	})

	t.Run("signed out", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var res struct {
			Data *model.Session `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Nil(t, res.Data)
	})
}
