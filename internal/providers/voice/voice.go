package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Authorizer interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error)
}

type AuthorizeRequest struct {
	SessionID string            `json:"session_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuthorizeResponse is passed through to the browser client unchanged.
type AuthorizeResponse struct {
	ClientSessionKey string `json:"client_session_key"`
	SessionID        string `json:"session_id"`
}

// PipelineClient calls the hosted voice pipeline's session authorization endpoint.
type PipelineClient struct {
	http       *http.Client
	url        string
	apiKey     string
	pipelineID string
}

func NewPipelineClient(authURL, apiKey, pipelineID string) *PipelineClient {
	return &PipelineClient{
		http:       &http.Client{Timeout: 15 * time.Second},
		url:        authURL,
		apiKey:     apiKey,
		pipelineID: pipelineID,
	}
}

func (c *PipelineClient) Authorize(ctx context.Context, in AuthorizeRequest) (*AuthorizeResponse, error) {
	if c.apiKey == "" || c.pipelineID == "" {
		return nil, fmt.Errorf("voice pipeline is not configured")
	}

	body, err := json.Marshal(struct {
		PipelineID string `json:"pipeline_id"`
		AuthorizeRequest
	}{PipelineID: c.pipelineID, AuthorizeRequest: in})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authorize voice session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read authorize response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("authorize voice session: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out AuthorizeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode authorize response: %w", err)
	}
	if out.ClientSessionKey == "" {
		return nil, fmt.Errorf("authorize voice session: empty client_session_key")
	}
	return &out, nil
}
