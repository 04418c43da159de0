package docintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/purchasing-tools/po-extract/constants"
	"github.com/purchasing-tools/po-extract/internal/common"
)

// Client talks to the document-analysis service over HTTP: submit bytes,
// follow the returned operation URL, poll until the operation settles.
type Client struct {
	cfg    common.ServiceConfig
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg common.ServiceConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// operationStatus is the envelope of a polled analysis operation.
type operationStatus struct {
	Status        string          `json:"status"`
	AnalyzeResult json.RawMessage `json:"analyzeResult"`
	Error         *serviceError   `json:"error"`
}

type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) modelID(kind constants.DocKind) string {
	if kind == constants.Invoice {
		return c.cfg.InvoiceModelID
	}
	return c.cfg.POModelID
}

// Analyze submits the page and polls the operation URL until the service
// reports success or failure. Every failure is returned as a *RequestError so
// the retry controller can read the status code and delay hints.
func (c *Client) Analyze(ctx context.Context, req AnalysisRequest) (*AnalyzeResult, error) {
	reqID := uuid.New().String()
	start := time.Now()

	url := fmt.Sprintf("%s/documentModels/%s:analyze?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.modelID(req.Kind), c.cfg.APIVersion)

	c.logger.Info("docintel.analyze.submit",
		"req_id", reqID,
		"source", req.SourceName,
		"model", c.modelID(req.Kind),
		"bytes", len(req.DocumentBytes),
	)

	opURL, err := c.submit(ctx, url, req.DocumentBytes, reqID)
	if err != nil {
		return nil, err
	}

	raw, err := c.poll(ctx, opURL, reqID)
	if err != nil {
		return nil, err
	}

	if err := ValidateEnvelope(raw); err != nil {
		c.logger.Warn("docintel.analyze.bad_envelope", "req_id", reqID, "error", err)
		return nil, &RequestError{Message: fmt.Sprintf("malformed analyze result: %v", err)}
	}

	var op operationStatus
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, &RequestError{Message: fmt.Sprintf("decode analyze result: %v", err)}
	}

	var result AnalyzeResult
	if len(op.AnalyzeResult) > 0 {
		if err := json.Unmarshal(op.AnalyzeResult, &result); err != nil {
			return nil, &RequestError{Message: fmt.Sprintf("decode analyze result: %v", err)}
		}
	}

	c.logger.Info("docintel.analyze.ok",
		"req_id", reqID,
		"source", req.SourceName,
		"documents", len(result.Documents),
		"tables", len(result.Tables),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &result, nil
}

// submit posts the document bytes and returns the operation URL to poll.
func (c *Client) submit(ctx context.Context, url string, doc []byte, reqID string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("docintel.submit.send_error", "req_id", reqID, "error", err)
		return "", &RequestError{Message: err.Error()}
	}
	defer c.closeBody(resp.Body, reqID)

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode/100 != 2 {
		return "", c.requestError(resp, reqID)
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", &RequestError{
			StatusCode: resp.StatusCode,
			Message:    "service did not return an operation location",
		}
	}
	return opURL, nil
}

// poll fetches the operation until it settles, returning the raw envelope.
func (c *Client) poll(ctx context.Context, opURL, reqID string) ([]byte, error) {
	for {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build poll request: %w", err)
		}
		httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			c.logger.Error("docintel.poll.send_error", "req_id", reqID, "error", err)
			return nil, &RequestError{Message: err.Error()}
		}
		if resp.StatusCode/100 != 2 {
			reqErr := c.requestError(resp, reqID)
			c.closeBody(resp.Body, reqID)
			return nil, reqErr
		}

		raw, err := io.ReadAll(resp.Body)
		c.closeBody(resp.Body, reqID)
		if err != nil {
			return nil, &RequestError{Message: fmt.Sprintf("read poll response: %v", err)}
		}

		var op operationStatus
		if err := json.Unmarshal(raw, &op); err != nil {
			return nil, &RequestError{Message: fmt.Sprintf("decode poll response: %v", err)}
		}

		switch strings.ToLower(op.Status) {
		case "succeeded":
			return raw, nil
		case "failed":
			msg := "analysis operation failed"
			if op.Error != nil && op.Error.Message != "" {
				msg = op.Error.Message
			}
			return nil, &RequestError{Message: msg}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

// requestError maps a non-2xx response to a *RequestError, capturing the
// retry hints the service may attach.
func (c *Client) requestError(resp *http.Response, reqID string) *RequestError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	msg := strings.TrimSpace(string(raw))
	var payload struct {
		Error *serviceError `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != nil && payload.Error.Message != "" {
		msg = payload.Error.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	reqErr := &RequestError{
		StatusCode:       resp.StatusCode,
		Message:          msg,
		RetryAfterHeader: resp.Header.Get("Retry-After"),
	}
	if ms := resp.Header.Get("x-ms-retry-after-ms"); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil && n > 0 {
			reqErr.RetryAfterMS = n
		}
	}

	c.logger.Warn("docintel.request.failed",
		"req_id", reqID,
		"status", resp.StatusCode,
		"retry_after", reqErr.RetryAfterHeader,
		"retry_after_ms", reqErr.RetryAfterMS,
	)
	return reqErr
}

func (c *Client) closeBody(body io.ReadCloser, reqID string) {
	if err := body.Close(); err != nil {
		c.logger.Warn("docintel.response_body_close_error", "req_id", reqID, "error", err)
	}
}
