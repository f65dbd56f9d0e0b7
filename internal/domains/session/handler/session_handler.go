package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"cardistry-catalog/internal/domains/session/model"
	"cardistry-catalog/internal/domains/session/service"
	"cardistry-catalog/internal/shared/middleware"
	"cardistry-catalog/internal/shared/response"
)

type Handler struct {
	service      service.Service
	secureCookie bool
}

// NewHandler wires the auth endpoints. secureCookie marks the session
// cookie Secure; set it outside development.
func NewHandler(svc service.Service, secureCookie bool) *Handler {
	return &Handler{service: svc, secureCookie: secureCookie}
}

// ========================================
// AUTHENTICATION ENDPOINTS
// ========================================

// Register - POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	identity, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, identity)
}

// SignIn - POST /api/v1/auth/sign-in
// Returns the bearer token and also sets it as the page session cookie.
func (h *Handler) SignIn(c *gin.Context) {
	var req model.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	res, err := h.service.SignIn(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	maxAge := int(time.Until(res.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, res.Token, maxAge, "/", "", h.secureCookie, true)

	response.Success(c, http.StatusOK, res)
}

// SignOut - POST /api/v1/auth/sign-out
// Always succeeds from the caller's view.
func (h *Handler) SignOut(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token != "" {
		if err := h.service.SignOut(c.Request.Context(), token); err != nil {
			log.Warn().Err(err).Str("request_id", c.GetString("request_id")).Msg("sign-out revocation failed")
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}

// Me - GET /api/v1/auth/me
// Answers with the identity, or null when signed out.
func (h *Handler) Me(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		response.Success(c, http.StatusOK, nil)
		return
	}
	response.Success(c, http.StatusOK, sess)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var sessErr *model.SessionError
	if !errors.As(err, &sessErr) {
		log.Error().Err(err).Msg("auth request failed")
		response.InternalServerError(c, "Internal server error")
		return
	}

	switch {
	case errors.Is(err, model.ErrAuthFailure):
		response.Fail(c, http.StatusUnauthorized, sessErr.Code, sessErr.Message)
	case errors.Is(err, model.ErrAccountExists):
		response.Fail(c, http.StatusConflict, sessErr.Code, sessErr.Message)
	case errors.Is(err, model.ErrInvalidInput):
		response.Fail(c, http.StatusBadRequest, sessErr.Code, sessErr.Message)
	default:
		response.Fail(c, http.StatusInternalServerError, sessErr.Code, sessErr.Message)
	}
}
