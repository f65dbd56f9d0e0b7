package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"cardistry-catalog/internal/domains/move/feed"
	"cardistry-catalog/internal/domains/move/model"
	"cardistry-catalog/internal/domains/move/render"
	"cardistry-catalog/internal/domains/move/service"
	sessionModel "cardistry-catalog/internal/domains/session/model"
	"cardistry-catalog/internal/shared/middleware"
	"cardistry-catalog/internal/shared/response"
)

const (
	uploadIDHeader    = "X-Upload-ID"
	imageField        = "image"
	streamKeepAlive   = 25 * time.Second
	exportFilename    = "moves.xlsx"
	defaultImageLimit = 5 << 20
)

// Collection is the read side of the live collection.
type Collection interface {
	Snapshot() ([]model.MoveRecord, uint64)
	Changes() (<-chan struct{}, func())
}

// IdentityEvents pushes sign-in and sign-out notifications.
type IdentityEvents interface {
	Subscribe() (<-chan sessionModel.IdentityChange, func())
}

type Handler struct {
	live          Collection
	service       service.Service
	tracker       *service.UploadTracker
	identities    IdentityEvents
	maxImageBytes int64
}

func NewHandler(
	live Collection,
	svc service.Service,
	tracker *service.UploadTracker,
	identities IdentityEvents,
	maxImageBytes int64,
) *Handler {
	if maxImageBytes <= 0 {
		maxImageBytes = defaultImageLimit
	}
	return &Handler{
		live:          live,
		service:       svc,
		tracker:       tracker,
		identities:    identities,
		maxImageBytes: maxImageBytes,
	}
}

func (h *Handler) currentView(c *gin.Context) feed.FeedView {
	var req model.ListMovesRequest
	_ = c.ShouldBindQuery(&req)

	records, version := h.live.Snapshot()
	return feed.BuildView(records, feed.FilterFromRequest(req), version)
}

// ListMoves - GET /api/v1/moves?q=&year=&difficulty=
func (h *Handler) ListMoves(c *gin.Context) {
	view := h.currentView(c)
	response.Collection(c, view, response.Meta{
		Count:   len(view.Moves),
		Total:   view.Total,
		Version: view.Version,
	})
}

// Page - GET /
func (h *Handler) Page(c *gin.Context) {
	var identity *sessionModel.Identity
	if sess := middleware.CurrentSession(c); sess != nil {
		identity = &sess.Identity
	}
	c.HTML(http.StatusOK, render.FeedTemplate, render.NewPage(h.currentView(c), identity))
}

// ExportMoves - GET /api/v1/moves/export.xlsx
func (h *Handler) ExportMoves(c *gin.Context) {
	view := h.currentView(c)

	c.Header("Content-Type", render.XLSXContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename))
	c.Status(http.StatusOK)

	if err := render.WriteXLSX(c.Writer, view); err != nil {
		log.Error().Err(err).Msg("export failed")
		c.Abort()
	}
}

// identityPayload is the body of an "identity" stream event.
type identityPayload struct {
	Identity *sessionModel.Identity `json:"identity"`
}

// StreamMoves - GET /api/v1/moves/stream
// Server-sent events: "snapshot" carries a FeedView on connect and after
// every change; "identity" reports the stream's own session signing in or out.
// Identity changes are matched by session id, so a stream opened without a
// token never sees one; clients reconnect with the new token after sign-in.
func (h *Handler) StreamMoves(c *gin.Context) {
	rc := http.NewResponseController(c.Writer)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Debug().Err(err).Msg("stream: cannot clear write deadline")
	}

	changes, stopChanges := h.live.Changes()
	defer stopChanges()
	identities, stopIdentities := h.identities.Subscribe()
	defer stopIdentities()

	sess := middleware.CurrentSession(c)
	var identity *sessionModel.Identity
	if sess != nil {
		identity = &sess.Identity
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	first := true
	c.Stream(func(w io.Writer) bool {
		if first {
			first = false
			c.SSEvent("identity", identityPayload{Identity: identity})
			c.SSEvent("snapshot", h.currentView(c))
			return true
		}

		select {
		case <-c.Request.Context().Done():
			return false
		case <-changes:
			c.SSEvent("snapshot", h.currentView(c))
		case change, ok := <-identities:
			if !ok {
				return false
			}
			if sess != nil && change.SessionID == sess.ID {
				c.SSEvent("identity", identityPayload{Identity: change.Identity})
			}
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().Unix())
		}
		return true
	})
}

// CreateMove - POST /api/v1/moves (multipart/form-data)
func (h *Handler) CreateMove(c *gin.Context) {
	var form model.MoveForm
	if err := c.ShouldBind(&form); err != nil {
		response.Fail(c, http.StatusBadRequest, model.ErrCodeValidationFailure, "Invalid form: "+err.Error())
		return
	}

	image, err := h.readImage(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	var identity *sessionModel.Identity
	if sess := middleware.CurrentSession(c); sess != nil {
		identity = &sess.Identity
	}

	ctx := c.Request.Context()
	uploadID := c.GetHeader(uploadIDHeader)
	var progress service.ProgressFunc
	if uploadID != "" && image != nil {
		progress = h.tracker.Sink(ctx, uploadID)
	}

	rec, err := h.service.Submit(ctx, identity, form, image, progress)
	if progress != nil {
		url := ""
		if rec != nil {
			url = rec.ImageURL
		}
		h.tracker.Complete(ctx, uploadID, url, err)
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, rec)
}

func (h *Handler) readImage(c *gin.Context) (*model.ImageUpload, error) {
	header, err := c.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewFieldError(imageField, err)
	}
	if header.Size > h.maxImageBytes {
		return nil, model.NewFieldError(imageField, model.ErrImageTooLarge)
	}

	file, err := header.Open()
	if err != nil {
		return nil, model.NewFieldError(imageField, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxImageBytes+1))
	if err != nil {
		return nil, model.NewFieldError(imageField, err)
	}
	if int64(len(data)) > h.maxImageBytes {
		return nil, model.NewFieldError(imageField, model.ErrImageTooLarge)
	}

	return &model.ImageUpload{
		Filename: header.Filename,
		Data:     data,
	}, nil
}

// GetUpload - GET /api/v1/uploads/:id
func (h *Handler) GetUpload(c *gin.Context) {
	p, found, err := h.tracker.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalServerError(c, "failed to read upload progress")
		return
	}
	if !found {
		response.NotFound(c, "upload not found")
		return
	}
	response.Success(c, http.StatusOK, p)
}

// ========================================
// ERROR MAPPING
// ========================================

func (h *Handler) handleError(c *gin.Context, err error) {
	var moveErr *model.MoveError
	if !errors.As(err, &moveErr) {
		log.Error().Err(err).Msg("unexpected submission error")
		response.InternalServerError(c, "Internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch moveErr.Code {
	case model.ErrCodeValidationFailure:
		status = http.StatusBadRequest
	case model.ErrCodeUploadFailure:
		status = http.StatusBadGateway
	case model.ErrCodeWriteFailure:
		status = http.StatusInternalServerError
	}
	response.FailFields(c, status, moveErr.Code, moveErr.Error(), moveErr.Fields)
}
