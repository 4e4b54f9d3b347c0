package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrExecutionFailed marks a run that reached the execution service but did
// not complete cleanly (compile error, runtime crash, sandbox timeout). The
// accompanying output carries the diagnostic text for the learner.
var ErrExecutionFailed = errors.New("execution failed")

// Client calls the remote code-execution service. One call per evaluation;
// a failed or timed-out call is reported to the caller, never retried here.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a Client for the execution service at baseURL.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("component", "runner_client").Logger(),
	}
}

type executeRequest struct {
	Language string        `json:"language"`
	Version  string        `json:"version"`
	Files    []executeFile `json:"files"`
}

type executeFile struct {
	Content string `json:"content"`
}

type executeResponse struct {
	Run     stageResult  `json:"run"`
	Compile *stageResult `json:"compile,omitempty"`
	Message string       `json:"message,omitempty"`
}

type stageResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Output string `json:"output"`
	Code   int    `json:"code"`
}

// Execute runs source under language/version and returns the program output.
// On ErrExecutionFailed the returned string holds diagnostic output; on
// transport errors it is empty.
func (c *Client) Execute(ctx context.Context, language, version, source string) (string, error) {
	body, err := json.Marshal(executeRequest{
		Language: language,
		Version:  version,
		Files:    []executeFile{{Content: source}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal execute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("language", language).Msg("Execution service unreachable")
		return "", fmt.Errorf("execution service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read execute response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("language", language).
			Msg("Execution service rejected request")
		return "", fmt.Errorf("execution service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result executeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse execute response: %w", err)
	}

	// Compile stage failure: the run stage never happened, the compiler
	// diagnostics are the learner-visible output.
	if result.Compile != nil && result.Compile.Code != 0 {
		return result.Compile.Output, ErrExecutionFailed
	}

	if result.Run.Code != 0 {
		return result.Run.Output, ErrExecutionFailed
	}

	return result.Run.Output, nil
}
