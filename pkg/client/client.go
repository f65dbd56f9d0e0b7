package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardistry-catalog/internal/domains/move/feed"
	moveModel "cardistry-catalog/internal/domains/move/model"
	sessionModel "cardistry-catalog/internal/domains/session/model"
)

// Client is the catalog API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client. token may be empty for anonymous use.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// envelope mirrors the API's {success, data, error} response body.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// --- Session methods ---

// Register creates an account for email/password sign-in.
func (c *Client) Register(ctx context.Context, req sessionModel.RegisterRequest) (*sessionModel.Identity, error) {
	var identity sessionModel.Identity
	if err := c.postJSON(ctx, "/api/v1/auth/register", req, &identity); err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	return &identity, nil
}

// SignIn exchanges credentials for a session token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*sessionModel.SignInResponse, error) {
	var res sessionModel.SignInResponse
	req := sessionModel.SignInRequest{Email: email, Password: password}
	if err := c.postJSON(ctx, "/api/v1/auth/sign-in", req, &res); err != nil {
		return nil, fmt.Errorf("client.SignIn: %w", err)
	}
	return &res, nil
}

// SignOut revokes the client's token.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/sign-out", nil, "", nil); err != nil {
		return fmt.Errorf("client.SignOut: %w", err)
	}
	return nil
}

// Me returns the current session, or nil when signed out.
func (c *Client) Me(ctx context.Context) (*sessionModel.Session, error) {
	var sess *sessionModel.Session
	if err := c.get(ctx, "/api/v1/auth/me", &sess); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	return sess, nil
}

// --- Move methods ---

// ListMoves fetches the filtered feed view.
func (c *Client) ListMoves(ctx context.Context, f feed.Filter) (*feed.FeedView, error) {
	var view feed.FeedView
	if err := c.get(ctx, "/api/v1/moves"+filterQuery(f), &view); err != nil {
		return nil, fmt.Errorf("client.ListMoves: %w", err)
	}
	return &view, nil
}

// Image is an image attached to a submission.
type Image struct {
	Filename string
	Body     io.Reader
}

// CreateMove submits form as multipart/form-data. When uploadID is set the
// server records upload progress under it (see UploadProgress).
func (c *Client) CreateMove(ctx context.Context, form moveModel.MoveForm, image *Image, uploadID string) (*moveModel.MoveRecord, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"name", form.Name},
		{"creator", form.Creator},
		{"year", form.Year},
		{"difficulty", form.Difficulty},
		{"description", form.Description},
		{"tags", form.Tags},
		{"video", form.Video},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("client.CreateMove: write field %s: %w", f.name, err)
		}
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", image.Filename)
		if err != nil {
			return nil, fmt.Errorf("client.CreateMove: create file part: %w", err)
		}
		if _, err := io.Copy(part, image.Body); err != nil {
			return nil, fmt.Errorf("client.CreateMove: copy image: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("client.CreateMove: close multipart: %w", err)
	}

	var headers http.Header
	if uploadID != "" {
		headers = http.Header{"X-Upload-Id": []string{uploadID}}
	}

	var rec moveModel.MoveRecord
	if err := c.doRequestWithHeaders(ctx, http.MethodPost, "/api/v1/moves", &buf, mw.FormDataContentType(), headers, &rec); err != nil {
		return nil, fmt.Errorf("client.CreateMove: %w", err)
	}
	return &rec, nil
}

// UploadProgress reads the progress recorded for uploadID.
func (c *Client) UploadProgress(ctx context.Context, uploadID string) (*moveModel.UploadProgress, error) {
	var p moveModel.UploadProgress
	if err := c.get(ctx, "/api/v1/uploads/"+url.PathEscape(uploadID), &p); err != nil {
		return nil, fmt.Errorf("client.UploadProgress: %w", err)
	}
	return &p, nil
}

// ExportMoves streams the filtered feed as an XLSX workbook into w.
func (c *Client) ExportMoves(ctx context.Context, f feed.Filter, w io.Writer) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/moves/export.xlsx"+filterQuery(f), nil, "")
	if err != nil {
		return fmt.Errorf("client.ExportMoves: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client.ExportMoves: do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		return fmt.Errorf("client.ExportMoves: %w", readError(resp))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("client.ExportMoves: copy body: %w", err)
	}
	return nil
}

func filterQuery(f feed.Filter) string {
	params := url.Values{}
	if f.Query != "" {
		params.Set("q", f.Query)
	}
	if f.Year != "" {
		params.Set("year", f.Year)
	}
	if f.Difficulty != "" {
		params.Set("difficulty", f.Difficulty)
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

// --- transport ---

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json", out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	return c.doRequestWithHeaders(ctx, method, path, body, contentType, nil, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) doRequestWithHeaders(
	ctx context.Context,
	method, path string,
	body io.Reader,
	contentType string,
	headers http.Header,
	out any,
) error {
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		return readError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func readError(resp *http.Response) error {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if readErr != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
	}
	var env envelope
	if json.Unmarshal(respBody, &env) == nil && env.Error != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Code: env.Error.Code, Message: env.Error.Message, Fields: env.Error.Fields}
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
}
