// Package document is the CRUD client for the post document store's REST API.
// It has no knowledge of images beyond the URLs embedded in section lists;
// image lifecycle is entirely the coordinator's concern.
package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hndao/inkpost/internal/model"
	"github.com/hndao/inkpost/internal/session"
)

var docLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	docLogger = l
}

// tokenFailureMessages are the API's authentication failure signals. Seeing
// one means the stored credential is dead and must be evicted.
var tokenFailureMessages = []string{
	"Token is blacklisted",
	"Invalid token",
	"No token provided",
}

// APIError is a non-2xx response from the document API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("document API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("document API error (%d)", e.StatusCode)
}

// CreatePost is the payload for creating a new post. The author is assigned
// server-side from the bearer credential.
type CreatePost struct {
	Title    string          `json:"title"`
	Sections []model.Section `json:"sections"`
}

// UpdatePost replaces title and sections wholesale. The API treats sections
// as replace-not-merge, so callers must always pass the complete list.
type UpdatePost struct {
	Title    string          `json:"title"`
	Sections []model.Section `json:"sections"`
}

type Client struct {
	baseURL string
	client  *http.Client
	tokens  session.TokenSource
}

func NewClient(baseURL string, client *http.Client, tokens session.TokenSource) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		tokens:  tokens,
	}
}

// Credentials is the authentication API's login response.
type Credentials struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

// Login exchanges a username and password for a bearer token. The call is
// unauthenticated; storing the returned token is the caller's job.
func (c *Client) Login(ctx context.Context, username, password string) (*Credentials, error) {
	payload := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{Username: username, Password: password}

	var creds Credentials
	if err := c.do(ctx, http.MethodPost, "/auth/login", payload, &creds, false); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (c *Client) Create(ctx context.Context, input CreatePost) (*model.Post, error) {
	var post model.Post
	if err := c.do(ctx, http.MethodPost, "/posts", input, &post, true); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) List(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	if err := c.do(ctx, http.MethodGet, "/posts", nil, &posts, false); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) GetByID(ctx context.Context, id model.DocumentID) (*model.Post, error) {
	var post model.Post
	if err := c.do(ctx, http.MethodGet, "/posts/"+string(id), nil, &post, false); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) Update(ctx context.Context, id model.DocumentID, input UpdatePost) (*model.Post, error) {
	var post model.Post
	if err := c.do(ctx, http.MethodPut, "/posts/"+string(id), input, &post, true); err != nil {
		return nil, err
	}
	return &post, nil
}

// Delete removes the document only. Associated images are untouched; cleaning
// them up is the coordinator's job, issued as separate calls.
func (c *Client) Delete(ctx context.Context, id model.DocumentID) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+string(id), nil, nil, true)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, authed bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("error loading credential: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("document API unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Message = payload.Message
	}

	for _, msg := range tokenFailureMessages {
		if apiErr.Message == msg {
			docLogger.Warn().Str("message", msg).Msg("Credential rejected, evicting session token")
			if err := c.tokens.Evict(); err != nil {
				docLogger.Error().Err(err).Msg("Error evicting session token")
			}
			break
		}
	}

	return apiErr
}
