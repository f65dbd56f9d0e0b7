package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cardistry-catalog/internal/domains/move/feed"
	"cardistry-catalog/internal/domains/move/model"
	"cardistry-catalog/internal/domains/move/render"
	"cardistry-catalog/internal/domains/move/service"
	sessionModel "cardistry-catalog/internal/domains/session/model"
	"cardistry-catalog/internal/shared/middleware"
	"cardistry-catalog/pkg/cache"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCollection struct {
	records []model.MoveRecord
	version uint64
	changes chan struct{}
}

func (f *fakeCollection) Snapshot() ([]model.MoveRecord, uint64) { return f.records, f.version }
func (f *fakeCollection) Changes() (<-chan struct{}, func())   { return f.changes, func() {} }

type fakeIdentities struct {
	ch chan sessionModel.IdentityChange
}

func (f *fakeIdentities) Subscribe() (<-chan sessionModel.IdentityChange, func()) {
	return f.ch, func() {}
}

type submitFunc func(ctx context.Context, identity *sessionModel.Identity, form model.MoveForm, image *model.ImageUpload, progress service.ProgressFunc) (*model.MoveRecord, error)

type fakeService struct {
	mu     sync.Mutex
	calls  int
	submit submitFunc
}

func (f *fakeService) Submit(ctx context.Context, identity *sessionModel.Identity, form model.MoveForm, image *model.ImageUpload, progress service.ProgressFunc) (*model.MoveRecord, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.submit(ctx, identity, form, image, progress)
}

// staticSessions resolves "tok" to sess and everything else to signed out.
type staticSessions struct {
	sess *sessionModel.Session
}

func (s staticSessions) Current(_ context.Context, token string) (*sessionModel.Session, error) {
	if token == "tok" {
		return s.sess, nil
	}
	return nil, nil
}

var testSession = &sessionModel.Session{
	ID:       "sess-1",
	Identity: sessionModel.Identity{UID: "u1", DisplayName: "Ada", Email: "ada@example.com"},
}

func scenarioRecords() []model.MoveRecord {
	year := 2007
	return []model.MoveRecord{
		{ID: uuid.New(), Name: "Sybil", Creator: "Chris Kenner", Year: &year, Difficulty: "Medium", Tags: []string{"cut", "classic"}, ImageURL: "http://img/sybil.png"},
		{ID: uuid.New(), Name: "Revolution", Creator: "Dan Buck", Difficulty: "Easy", Tags: []string{"spin"}},
	}
}

type testEnv struct {
	router     *gin.Engine
	live       *fakeCollection
	svc        *fakeService
	identities *fakeIdentities
}

func newTestEnv(t *testing.T, maxImageBytes int64) *testEnv {
	t.Helper()
	env := &testEnv{
		live:       &fakeCollection{records: scenarioRecords(), version: 7, changes: make(chan struct{}, 1)},
		svc:        &fakeService{},
		identities: &fakeIdentities{ch: make(chan sessionModel.IdentityChange, 1)},
	}
	env.svc.submit = func(_ context.Context, _ *sessionModel.Identity, form model.MoveForm, _ *model.ImageUpload, _ service.ProgressFunc) (*model.MoveRecord, error) {
		return &model.MoveRecord{ID: uuid.New(), Name: form.Name}, nil
	}

	tracker := service.NewUploadTracker(cache.NewMemoryCache())
	h := NewHandler(env.live, env.svc, tracker, env.identities, maxImageBytes)

	r := gin.New()
	r.SetHTMLTemplate(render.Templates())
	r.Use(middleware.OptionalAuth(staticSessions{sess: testSession}))
	r.GET("/", h.Page)
	r.GET("/api/v1/moves", h.ListMoves)
	r.GET("/api/v1/moves/stream", h.StreamMoves)
	r.GET("/api/v1/moves/export.xlsx", h.ExportMoves)
	r.POST("/api/v1/moves", h.CreateMove)
	r.GET("/api/v1/uploads/:id", h.GetUpload)
	env.router = r
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Meta *struct {
		Count   int    `json:"count"`
		Total   int    `json:"total"`
		Version uint64 `json:"version"`
	} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

type multipartFile struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, fields map[string]string, file *multipartFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+file.name+`"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/moves", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// ========================================
// READ ENDPOINTS
// ========================================

func TestListMoves_AppliesFilter(t *testing.T) {
	env := newTestEnv(t, 0)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/moves?q=SYB", nil))
	require.Equal(t, http.StatusOK, w.Code)

	res := decode(t, w)
	assert.True(t, res.Success)
	require.NotNil(t, res.Meta)
	assert.Equal(t, 1, res.Meta.Count)
	assert.Equal(t, 2, res.Meta.Total)
	assert.Equal(t, uint64(7), res.Meta.Version)

	var view feed.FeedView
	require.NoError(t, json.Unmarshal(res.Data, &view))
	require.Len(t, view.Moves, 1)
	assert.Equal(t, "Sybil", view.Moves[0].Name)
	assert.Equal(t, uint64(7), view.Version)
	assert.Equal(t, 2, view.Total)
	assert.Equal(t, "SYB", view.Filter.Query)
}

func TestListMoves_NoMatchIsEmptyView(t *testing.T) {
	env := newTestEnv(t, 0)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/moves?difficulty=Expert", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var view feed.FeedView
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	assert.True(t, view.Empty)
	assert.Empty(t, view.Moves)
	assert.Equal(t, feed.EmptyMessage, view.EmptyMessage)
}

func TestPage_RendersCardsAndIdentity(t *testing.T) {
	env := newTestEnv(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/?year=2007", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Find("article.card").Length())
	assert.Equal(t, "Sybil", strings.TrimSpace(doc.Find("article.card h3").Text()))
	assert.Equal(t, "Ada", strings.TrimSpace(doc.Find("#displayName").Text()))
	val, _ := doc.Find(`input[name="year"]`).Attr("value")
	assert.Equal(t, "2007", val)
}

func TestPage_SignedOut(t *testing.T) {
	env := newTestEnv(t, 0)

	w := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("#account.signed-out").Length())
	assert.Equal(t, 0, doc.Find("#displayName").Length())
	assert.Equal(t, 2, doc.Find("article.card").Length())
}

func TestExportMoves_Workbook(t *testing.T) {
	env := newTestEnv(t, 0)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/moves/export.xlsx?difficulty=Easy", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, render.XLSXContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "moves.xlsx")

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(render.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Revolution", rows[1][0])
}

// ========================================
// SUBMISSION
// ========================================

func TestCreateMove_TracksUploadProgress(t *testing.T) {
	env := newTestEnv(t, 0)

	var gotIdentity *sessionModel.Identity
	var gotImage *model.ImageUpload
	env.svc.submit = func(_ context.Context, identity *sessionModel.Identity, form model.MoveForm, image *model.ImageUpload, progress service.ProgressFunc) (*model.MoveRecord, error) {
		gotIdentity, gotImage = identity, image
		require.NotNil(t, progress)
		progress(50)
		return &model.MoveRecord{ID: uuid.New(), Name: form.Name, ImageURL: "http://img/x.png"}, nil
	}

	req := multipartRequest(t, map[string]string{"name": "Sybil", "tags": "cut"}, &multipartFile{name: "x.png", data: []byte("png")})
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set("X-Upload-ID", "up-1")

	w := env.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec model.MoveRecord
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rec))
	assert.Equal(t, "Sybil", rec.Name)

	require.NotNil(t, gotIdentity)
	assert.Equal(t, "Ada", gotIdentity.DisplayName)
	require.NotNil(t, gotImage)
	assert.Equal(t, "x.png", gotImage.Filename)
	assert.Equal(t, []byte("png"), gotImage.Data)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/uploads/up-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var p model.UploadProgress
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &p))
	assert.True(t, p.Done)
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, "http://img/x.png", p.URL)
}

func TestCreateMove_WithoutImage(t *testing.T) {
	env := newTestEnv(t, 0)

	var gotImage *model.ImageUpload
	var gotProgress service.ProgressFunc
	env.svc.submit = func(_ context.Context, identity *sessionModel.Identity, form model.MoveForm, image *model.ImageUpload, progress service.ProgressFunc) (*model.MoveRecord, error) {
		assert.Nil(t, identity)
		gotImage, gotProgress = image, progress
		return &model.MoveRecord{ID: uuid.New(), Name: form.Name}, nil
	}

	req := multipartRequest(t, map[string]string{"name": "Revolution"}, nil)
	req.Header.Set("X-Upload-ID", "up-2")
	w := env.do(req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, gotImage)
	assert.Nil(t, gotProgress)

	// nothing was uploaded, so nothing was tracked
	w = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/uploads/up-2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateMove_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"validation", model.NewValidationError(errors.New("name: name is required.")), http.StatusBadRequest, model.ErrCodeValidationFailure},
		{"upload", model.NewUploadError(errors.New("minio down")), http.StatusBadGateway, model.ErrCodeUploadFailure},
		{"write", model.NewWriteError(errors.New("pg down")), http.StatusInternalServerError, model.ErrCodeWriteFailure},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 0)
			env.svc.submit = func(context.Context, *sessionModel.Identity, model.MoveForm, *model.ImageUpload, service.ProgressFunc) (*model.MoveRecord, error) {
				return nil, tt.err
			}

			w := env.do(multipartRequest(t, map[string]string{"name": "x"}, nil))
			assert.Equal(t, tt.wantCode, w.Code)

			res := decode(t, w)
			assert.False(t, res.Success)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.wantErr, res.Error.Code)
		})
	}
}

func TestCreateMove_ValidationFields(t *testing.T) {
	env := newTestEnv(t, 0)
	env.svc.submit = func(_ context.Context, _ *sessionModel.Identity, form model.MoveForm, _ *model.ImageUpload, _ service.ProgressFunc) (*model.MoveRecord, error) {
		return nil, model.NewValidationError(form.Validate())
	}

	w := env.do(multipartRequest(t, map[string]string{"name": "   ", "creator": "Dan"}, nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	res := decode(t, w)
	require.NotNil(t, res.Error)
	assert.Equal(t, model.ErrCodeValidationFailure, res.Error.Code)
	assert.Equal(t, map[string]string{"name": "name is required"}, res.Error.Fields)
}

func TestCreateMove_FailedUploadIsTracked(t *testing.T) {
	env := newTestEnv(t, 0)
	env.svc.submit = func(_ context.Context, _ *sessionModel.Identity, _ model.MoveForm, _ *model.ImageUpload, progress service.ProgressFunc) (*model.MoveRecord, error) {
		progress(30)
		return nil, model.NewUploadError(errors.New("connection reset"))
	}

	req := multipartRequest(t, map[string]string{"name": "Sybil"}, &multipartFile{name: "x.png", data: []byte("png")})
	req.Header.Set("X-Upload-ID", "up-3")
	w := env.do(req)
	require.Equal(t, http.StatusBadGateway, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/uploads/up-3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var p model.UploadProgress
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &p))
	assert.True(t, p.Done)
	assert.Empty(t, p.URL)
	assert.Contains(t, p.Error, "Image upload failed")
}

func TestCreateMove_ImageTooLarge(t *testing.T) {
	env := newTestEnv(t, 8)

	w := env.do(multipartRequest(t, map[string]string{"name": "Sybil"}, &multipartFile{name: "big.png", data: bytes.Repeat([]byte("x"), 64)}))

	require.Equal(t, http.StatusBadRequest, w.Code)
	res := decode(t, w)
	assert.Equal(t, model.ErrCodeValidationFailure, res.Error.Code)
	assert.Equal(t, model.ErrImageTooLarge.Error(), res.Error.Fields["image"])
	assert.Zero(t, env.svc.calls)
}

// ========================================
// STREAM
// ========================================

type sseEvent struct {
	name string
	data string
}

// readEvents parses server-sent events off r until it closes.
func readEvents(r *bufio.Reader, out chan<- sseEvent) {
	defer close(out)
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			ev.name = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			ev.data = strings.TrimPrefix(line, "data:")
		case line == "" && ev.name != "":
			out <- ev
			ev = sseEvent{}
		}
	}
}

func nextEvent(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return sseEvent{}
	}
}

func TestStreamMoves_SnapshotsAndIdentity(t *testing.T) {
	env := newTestEnv(t, 0)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/moves/stream?q=rev&access_token=tok", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := make(chan sseEvent, 8)
	go readEvents(bufio.NewReader(resp.Body), events)

	ev := nextEvent(t, events)
	assert.Equal(t, "identity", ev.name)
	assert.Contains(t, ev.data, `"displayName":"Ada"`)

	ev = nextEvent(t, events)
	require.Equal(t, "snapshot", ev.name)
	var view feed.FeedView
	require.NoError(t, json.Unmarshal([]byte(ev.data), &view))
	require.Len(t, view.Moves, 1)
	assert.Equal(t, "Revolution", view.Moves[0].Name)

	// other sessions signing out are not this stream's business
	env.identities.ch <- sessionModel.IdentityChange{SessionID: "someone-else"}
	env.live.changes <- struct{}{}
	ev = nextEvent(t, events)
	assert.Equal(t, "snapshot", ev.name)

	env.identities.ch <- sessionModel.IdentityChange{SessionID: testSession.ID}
	ev = nextEvent(t, events)
	assert.Equal(t, "identity", ev.name)
	assert.Contains(t, ev.data, `"identity":null`)

	cancel()
	for range events {
	}
}

func TestStreamMoves_AnonymousSeesNoIdentityChanges(t *testing.T) {
	env := newTestEnv(t, 0)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/moves/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	events := make(chan sseEvent, 8)
	go readEvents(bufio.NewReader(resp.Body), events)

	ev := nextEvent(t, events)
	assert.Equal(t, "identity", ev.name)
	assert.Contains(t, ev.data, `"identity":null`)
	assert.Equal(t, "snapshot", nextEvent(t, events).name)

	// a sign-in elsewhere carries another session id; this stream has none
	signedIn := testSession.Identity
	env.identities.ch <- sessionModel.IdentityChange{SessionID: testSession.ID, Identity: &signedIn}
	require.Eventually(t, func() bool { return len(env.identities.ch) == 0 }, 2*time.Second, 10*time.Millisecond)

	env.live.changes <- struct{}{}
	assert.Equal(t, "snapshot", nextEvent(t, events).name)

	cancel()
	for range events {
	}
}
