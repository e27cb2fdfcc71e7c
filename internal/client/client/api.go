// Package client talks to the chat server's HTTP API and keeps the local
// session database.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

type Client struct {
	base   *url.URL
	jar    http.CookieJar
	http   *http.Client
	stream *http.Client
	token  string
}

// New builds a client for baseURL. timeout bounds ordinary calls; streamed
// turns run without a client-side timeout and end when the server closes
// the stream or ctx is done.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base:   base,
		jar:    jar,
		http:   &http.Client{Jar: jar, Timeout: timeout},
		stream: &http.Client{Jar: jar},
	}, nil
}

// BaseURL is the server the client talks to.
func (c *Client) BaseURL() string { return c.base.String() }

// Token is the current session token, taken from the auth cookie after a
// login or set from a saved session.
func (c *Client) Token() string { return c.token }

func (c *Client) SetToken(token string) { c.token = token }

// HTTPClient is the plain client, for fetching presigned attachment links.
func (c *Client) HTTPClient() *http.Client { return c.http }

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", common.BearerPrefix+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	c.captureToken()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: body.Error}
}

// captureToken keeps the session cookie the server set, so it can be
// saved and replayed as a bearer token in later runs.
func (c *Client) captureToken() {
	for _, ck := range c.jar.Cookies(c.base) {
		if ck.Name == common.AuthCookieName {
			c.token = ck.Value
			return
		}
	}
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	in := map[string]string{"email": email, "password": password}
	if name != "" {
		in["name"] = name
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password}, nil)
}

func (c *Client) LoginCode(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"code": code}, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.token = ""
	return err
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) Threads(ctx context.Context) ([]models.Thread, error) {
	var out struct {
		Threads []models.Thread `json:"threads"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chat/threads", nil, &out); err != nil {
		return nil, err
	}
	return out.Threads, nil
}

func (c *Client) CreateThread(ctx context.Context, title string) (*models.Thread, error) {
	in := map[string]any{}
	if title != "" {
		in["title"] = title
	}
	var out struct {
		Thread *models.Thread `json:"thread"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat/threads", in, &out); err != nil {
		return nil, err
	}
	return out.Thread, nil
}

func (c *Client) Messages(ctx context.Context, threadID string) ([]models.Message, error) {
	var out struct {
		Messages []models.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chat/threads/"+url.PathEscape(threadID)+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) Settings(ctx context.Context) (*models.Personalization, error) {
	var out struct {
		Personalization *models.Personalization `json:"personalization"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out); err != nil {
		return nil, err
	}
	return out.Personalization, nil
}

func (c *Client) PutSettings(ctx context.Context, p models.Personalization) (*models.Personalization, error) {
	var out struct {
		Personalization *models.Personalization `json:"personalization"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/settings", p, &out); err != nil {
		return nil, err
	}
	return out.Personalization, nil
}

func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	in := map[string]string{
		"audioData": base64.StdEncoding.EncodeToString(audio),
		"mimeType":  mimeType,
	}
	var out struct {
		Transcription string `json:"transcription"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/transcribe", in, &out); err != nil {
		return "", err
	}
	return out.Transcription, nil
}

var (
	ErrStreamFailed     = errors.New("turn failed")
	ErrStreamIncomplete = errors.New("stream ended without a terminal event")
)

// Stream sends one turn and calls onFragment for every piece of the reply
// as it arrives. It returns the id of the stored assistant message.
func (c *Client) Stream(ctx context.Context, threadID, message string, atts []models.AttachmentUpload, onFragment func(string)) (string, error) {
	in := struct {
		ThreadID    string                    `json:"threadId"`
		Message     string                    `json:"message"`
		Attachments []models.AttachmentUpload `json:"attachments,omitempty"`
	}{threadID, message, atts}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat/stream", in)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	var (
		id        string
		streamErr error
	)
	err = readEvents(resp.Body, func(ev models.Event) bool {
		switch {
		case ev.Error != "":
			streamErr = fmt.Errorf("%w: %s", ErrStreamFailed, ev.Error)
			return false
		case ev.Done:
			id = ev.MessageID
			return false
		case ev.Content != "":
			onFragment(ev.Content)
		}
		return true
	})
	if err != nil {
		return "", err
	}
	if streamErr != nil {
		return "", streamErr
	}
	if id == "" {
		return "", ErrStreamIncomplete
	}
	return id, nil
}
