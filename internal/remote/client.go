package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abhisek/examdrill/internal/attempt"
	"github.com/abhisek/examdrill/internal/trial"
)

const defaultTimeout = 10 * time.Second

// Client is the HTTP implementation of Gateway.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ Gateway = (*Client)(nil)

// NewClient creates a gateway client for the given endpoint. The token is
// sent as a bearer credential on every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) ListTrials(ctx context.Context, setID string) (*TrialList, error) {
	var out TrialList
	q := url.Values{"setId": {setID}}
	if err := c.do(ctx, http.MethodGet, "/trials", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTrial(ctx context.Context, setID string, totalQuestions int) (*TrialWithState, error) {
	body := map[string]any{"setId": setID, "totalQuestions": totalQuestions}
	var out TrialWithState
	if err := c.do(ctx, http.MethodPost, "/trials", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTrial(ctx context.Context, setID, trialID string) (*TrialWithState, error) {
	var out TrialWithState
	q := url.Values{"setId": {setID}}
	if err := c.do(ctx, http.MethodGet, "/trials/"+url.PathEscape(trialID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTrial(ctx context.Context, setID, trialID string, state attempt.ProgressState) (*UpdateResult, error) {
	body := map[string]any{"setId": setID, "state": state}
	var out UpdateResult
	if err := c.do(ctx, http.MethodPut, "/trials/"+url.PathEscape(trialID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CompleteTrial(ctx context.Context, setID, trialID string, totalQuestions int) (*trial.Trial, error) {
	body := map[string]any{"setId": setID, "totalQuestions": totalQuestions}
	var out trial.Trial
	path := "/trials/" + url.PathEscape(trialID) + "/complete"
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTrial(ctx context.Context, setID, trialID string) error {
	q := url.Values{"setId": {setID}}
	return c.do(ctx, http.MethodDelete, "/trials/"+url.PathEscape(trialID), q, nil, nil)
}

func (c *Client) GetProgress(ctx context.Context, setID string) (*FlatProgress, error) {
	var out FlatProgress
	q := url.Values{"setId": {setID}}
	if err := c.do(ctx, http.MethodGet, "/progress", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PutProgress(ctx context.Context, setID string, state attempt.ProgressState) error {
	body := map[string]any{
		"setId":     setID,
		"state":     state,
		"updatedAt": state.UpdatedAt.UTC().Format(time.RFC3339),
	}
	return c.do(ctx, http.MethodPut, "/progress", nil, body, nil)
}

func (c *Client) DeleteProgress(ctx context.Context, setID string) error {
	q := url.Values{"setId": {setID}}
	return c.do(ctx, http.MethodDelete, "/progress", q, nil, nil)
}

// do performs one JSON round trip and maps error statuses to the package's
// named conditions.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mapStatus(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
		TrialID string `json:"trialId"`
	}
	// Body decode is best-effort; the status code alone is enough to act on.
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &payload)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusConflict:
		return &ErrActiveTrialExists{TrialID: payload.TrialID}
	}
	return &StatusError{Code: resp.StatusCode, Message: payload.Message}
}
