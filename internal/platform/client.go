// Package platform holds the HTTP client for the upstream voice platform:
// the dashboard-data collaborator and the generation engine. Both are treated
// as authoritative and opaque.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
)

// Client calls the upstream platform over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a platform client rooted at baseURL.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("upstream base url required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}, nil
}

// FetchDashboard reads the caller's dashboard data. The bearer token is
// passed through untouched.
func (c *Client) FetchDashboard(ctx context.Context, bearerToken string) (*DashboardData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/user/dashboard", nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build dashboard request")
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(bearerToken, "Bearer "))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dashboard request failed")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp)
	}

	var data DashboardData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode dashboard response")
	}
	return &data, nil
}

// Generate submits a synthesis request to the engine and returns the audio
// reference.
func (c *Client) Generate(ctx context.Context, bearerToken string, request GenerateRequest) (*GenerateResponse, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal generate request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/voice/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build generate request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(bearerToken, "Bearer "))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate request failed")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp)
	}

	var data GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode generate response")
	}
	return &data, nil
}

// CloneVoice uploads a voice sample to the engine as a multipart form and
// returns the storage path. The sample is streamed straight into the request
// body; the engine owns the file from there.
func (c *Client) CloneVoice(ctx context.Context, bearerToken, userID, fileName string, sample io.Reader) (*CloneVoiceResponse, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("voice_file", fileName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}
	if _, err := io.Copy(part, sample); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read voice sample")
	}
	if err := form.WriteField("user_id", userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}
	if err := form.Close(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/voice/upload", &body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(bearerToken, "Bearer "))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload request failed")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp)
	}

	var data CloneVoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode upload response")
	}
	if data.Path == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "upload response missing path")
	}
	return &data, nil
}

// upstreamError maps an error payload ({error} or {message}) onto a coded
// error, falling back to the HTTP status.
func upstreamError(resp *http.Response) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(body, &payload)

	message := payload.Error
	if message == "" {
		message = payload.Message
	}
	if message == "" {
		message = fmt.Sprintf("upstream returned status %d", resp.StatusCode)
	}

	code := pkgerrors.CodeDependency
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		code = pkgerrors.CodeUnauthorized
	case http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	case http.StatusBadRequest:
		code = pkgerrors.CodeValidation
	}
	return pkgerrors.New(code, message)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
