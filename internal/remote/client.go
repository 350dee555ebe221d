// Package remote is the HTTP client for the notes service. It is the only
// package that knows the wire format: responses are normalized into
// models.Note here and failures surface as RemoteError, NetworkError or
// NormalizationError.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/quire/internal/models"
)

const maxResponseBytes = 10 << 20

var errNoToken = errors.New("no access token in response")

// TokenSource supplies the bearer token for each request. An empty token
// means the request is sent without an Authorization header.
type TokenSource interface {
	Token() string
}

// ListQuery holds the list parameters. Empty fields are omitted from the URL.
type ListQuery struct {
	Search string
	Sort   models.SortOption
}

// TokenResponse is returned by Signup and Login.
type TokenResponse struct {
	AccessToken string
	TokenType   string
}

// Account describes the authenticated user.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Client talks to the notes service.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the service rooted at baseURL
// (e.g. "http://localhost:8000/api/v1"). tokens may be nil.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the notes matching q in the order the service chose.
func (c *Client) List(ctx context.Context, q ListQuery) ([]models.Note, error) {
	params := url.Values{}
	if q.Search != "" {
		params.Set("search_query", q.Search)
	}
	if q.Sort != "" {
		params.Set("sort_by", string(q.Sort))
	}
	path := "/notes/"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	body, err := c.do(ctx, "list notes", http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	notes, err := NormalizeList(body)
	if err != nil {
		return nil, &NormalizationError{Op: "list notes", Err: err}
	}
	c.warnMissingIDs("list notes", notes...)
	return notes, nil
}

// Create stores a new note and returns it as the service echoed it.
func (c *Client) Create(ctx context.Context, title, content string) (models.Note, error) {
	payload, err := jsonBody(map[string]string{"title": title, "content": content})
	if err != nil {
		return models.Note{}, err
	}
	body, err := c.do(ctx, "create note", http.MethodPost, "/notes/", payload, "application/json")
	if err != nil {
		return models.Note{}, err
	}
	note, err := NormalizeNote(body)
	if err != nil {
		return models.Note{}, &NormalizationError{Op: "create note", Err: err}
	}
	c.warnMissingIDs("create note", note)
	return note, nil
}

// Update replaces title and content of note id. An empty response body
// yields a nil note and no error.
func (c *Client) Update(ctx context.Context, id, title, content string) (*models.Note, error) {
	payload, err := jsonBody(map[string]string{"title": title, "content": content})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, "update note", http.MethodPut, notePath(id), payload, "application/json")
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	note, err := NormalizeNote(body)
	if err != nil {
		return nil, &NormalizationError{Op: "update note", Err: err}
	}
	return &note, nil
}

// Delete removes note id.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete note", http.MethodDelete, notePath(id), nil, "")
	return err
}

// Get fetches a single note.
func (c *Client) Get(ctx context.Context, id string) (models.Note, error) {
	body, err := c.do(ctx, "get note", http.MethodGet, notePath(id), nil, "")
	if err != nil {
		return models.Note{}, err
	}
	note, err := NormalizeNote(body)
	if err != nil {
		return models.Note{}, &NormalizationError{Op: "get note", Err: err}
	}
	c.warnMissingIDs("get note", note)
	return note, nil
}

// Signup registers an account and returns its first token.
func (c *Client) Signup(ctx context.Context, email, password string) (TokenResponse, error) {
	payload, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return TokenResponse{}, err
	}
	body, err := c.do(ctx, "signup", http.MethodPost, "/auth/signup", payload, "application/json")
	if err != nil {
		return TokenResponse{}, err
	}
	return decodeToken("signup", body)
}

// Login exchanges credentials for a token. The service expects an
// OAuth2-style password form with the email in "username".
func (c *Client) Login(ctx context.Context, email, password string) (TokenResponse, error) {
	form := url.Values{"username": {email}, "password": {password}}
	body, err := c.do(ctx, "login", http.MethodPost, "/auth/login",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return TokenResponse{}, err
	}
	return decodeToken("login", body)
}

// Me describes the account the current token belongs to.
func (c *Client) Me(ctx context.Context) (Account, error) {
	body, err := c.do(ctx, "me", http.MethodGet, "/auth/me", nil, "")
	if err != nil {
		return Account{}, err
	}
	var a Account
	if err := json.Unmarshal(body, &a); err != nil {
		return Account{}, &NormalizationError{Op: "me", Err: err}
	}
	return a, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("remote: request failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	c.logger.Debug("remote: request",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Bool("token", token != ""),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}
	return data, nil
}

func (c *Client) warnMissingIDs(op string, notes ...models.Note) {
	for _, n := range notes {
		if n.ID == "" {
			c.logger.Warn("remote: note without identifier", slog.String("op", op), slog.String("title", n.Title))
		}
	}
}

// errorMessage prefers the service's "detail" or "error" field.
func errorMessage(code int, body []byte) string {
	var e struct {
		Detail json.RawMessage `json:"detail"`
		Error  json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		for _, raw := range []json.RawMessage{e.Detail, e.Error} {
			var s string
			if len(raw) > 0 && json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
		}
	}
	return statusMessage(code)
}

func decodeToken(op string, body []byte) (TokenResponse, error) {
	var t struct {
		AccessToken string `json:"access_token"`
		Token       string `json:"token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &t); err != nil {
		return TokenResponse{}, &NormalizationError{Op: op, Err: err}
	}
	tok := t.AccessToken
	if tok == "" {
		tok = t.Token
	}
	if tok == "" {
		return TokenResponse{}, &NormalizationError{Op: op, Err: errNoToken}
	}
	if t.TokenType == "" {
		t.TokenType = "bearer"
	}
	return TokenResponse{AccessToken: tok, TokenType: t.TokenType}, nil
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func notePath(id string) string {
	return "/notes/" + url.PathEscape(id) + "/"
}
