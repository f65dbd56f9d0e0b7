package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the body of every JSON API response.
type Envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Error   *Problem `json:"error,omitempty"`
	Meta    *Meta    `json:"meta,omitempty"`
}

// Problem describes a failed request. Fields maps form fields to the reason
// each was rejected.
type Problem struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// Meta describes a collection read: how many entries the filter kept, how
// many the snapshot held, and which snapshot version was read.
type Meta struct {
	Count   int    `json:"count"`
	Total   int    `json:"total"`
	Version uint64 `json:"version"`
}

func Success(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func Collection(c *gin.Context, data any, meta Meta) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Meta: &meta})
}

func Fail(c *gin.Context, status int, code, message string) {
	FailFields(c, status, code, message, nil)
}

// FailFields is Fail with per-field reasons, used for rejected forms.
func FailFields(c *gin.Context, status int, code, message string, fields map[string]string) {
	c.JSON(status, Envelope{
		Error: &Problem{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: c.GetString("request_id"),
		},
	})
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, "NOT_FOUND", message)
}

func InternalServerError(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message)
}
