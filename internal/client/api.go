// Package client is the Go side of the Digi chat UI: an HTTP client for the
// relay API and the conversation state the UI renders.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// API is the relay as seen by a conversation.
type API interface {
	Chat(ctx context.Context, message string) (string, error)
	ChatImage(ctx context.Context, message string, img Image) (string, error)
}

// Persona is the public part of the assistant persona.
type Persona struct {
	Name     string `json:"name"`
	Greeting string `json:"greeting"`
}

// StatusError is returned for any non-2xx relay response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay returned status %d", e.Code)
	}
	return fmt.Sprintf("relay returned status %d: %s", e.Code, e.Message)
}

// HTTP talks to the relay over its JSON and multipart endpoints.
type HTTP struct {
	baseURL string
	client  *http.Client
}

// NewHTTP creates a client for the relay at baseURL. A nil httpClient uses
// a client with a two minute timeout.
func NewHTTP(baseURL string, httpClient *http.Client) *HTTP {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Chat sends a text message to POST /api/chat.
func (c *HTTP) Chat(ctx context.Context, message string) (string, error) {
	payload, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out chatResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// ChatImage uploads an image and optional caption to POST /api/chat/image.
func (c *HTTP) ChatImage(ctx context.Context, message string, img Image) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, img.filename()))
	header.Set("Content-Type", img.MediaType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", fmt.Errorf("write image part: %w", err)
	}
	if err := mw.WriteField("message", message); err != nil {
		return "", fmt.Errorf("write message field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/image", &body)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out chatResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Persona fetches GET /api/persona.
func (c *HTTP) Persona(ctx context.Context) (Persona, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/persona", nil)
	if err != nil {
		return Persona{}, fmt.Errorf("build persona request: %w", err)
	}

	var out Persona
	if err := c.do(req, &out); err != nil {
		return Persona{}, err
	}
	return out, nil
}

func (c *HTTP) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.Unmarshal(data, &e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
