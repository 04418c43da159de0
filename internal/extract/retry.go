package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/purchasing-tools/po-extract/internal/docintel"
)

// Retry protocol constants. MaxRetries is the number of retries after the
// first attempt, so a page gets MaxRetries+1 attempts in total.
const (
	MaxRetries   = 3
	InitialDelay = 3 * time.Second
	MaxDelay     = 30 * time.Second
)

var reRetryAfterSeconds = regexp.MustCompile(`(?i)retry after (\d+) seconds`)

// TerminalError is surfaced after all attempts for one page are exhausted.
type TerminalError struct {
	Message    string
	StatusCode int
	Attempts   int
}

func (e *TerminalError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("analysis failed after %d attempts (status %d): %s", e.Attempts, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("analysis failed after %d attempts: %s", e.Attempts, e.Message)
}

// Retrier drives a single analysis call through the bounded retry protocol.
// It holds no per-call state, so one Retrier serves a whole run.
type Retrier struct {
	Logger *slog.Logger

	// sleep is swapped out in tests to observe delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetrier(logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{Logger: logger, sleep: sleepContext}
}

// Analyze performs up to MaxRetries+1 attempts of the analysis call. The
// second return reports whether any attempt was explicitly rate-limited, so
// the driver can escalate inter-page pacing for the rest of the run.
func (r *Retrier) Analyze(ctx context.Context, a docintel.Analyzer, req docintel.AnalysisRequest) (*docintel.AnalyzeResult, bool, error) {
	rateLimited := false
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		res, err := a.Analyze(ctx, req)
		if err == nil {
			return res, rateLimited, nil
		}
		lastErr = err

		var reqErr *docintel.RequestError
		if errors.As(err, &reqErr) && reqErr.RateLimited() {
			rateLimited = true
		}
		if ctx.Err() != nil {
			return nil, rateLimited, ctx.Err()
		}
		if attempt == MaxRetries {
			break
		}

		delay, source := retryDelay(err, attempt)
		r.Logger.Warn("analyze.retry",
			"source", req.SourceName,
			"attempt", attempt+1,
			"max_attempts", MaxRetries+1,
			"delay_ms", delay.Milliseconds(),
			"delay_source", source,
			"error", err,
		)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, rateLimited, err
		}
	}

	term := &TerminalError{
		Message:  lastErr.Error(),
		Attempts: MaxRetries + 1,
	}
	var reqErr *docintel.RequestError
	if errors.As(lastErr, &reqErr) {
		term.StatusCode = reqErr.StatusCode
		term.Message = reqErr.Message
	}
	r.Logger.Error("analyze.failed",
		"source", req.SourceName,
		"attempts", term.Attempts,
		"status", term.StatusCode,
		"error", term.Message,
	)
	return nil, rateLimited, term
}

// retryDelay picks the delay before the next attempt. Priority: explicit
// millisecond hint from the service, retry-after header, "retry after N
// seconds" in the message, exponential backoff. Always capped at MaxDelay.
func retryDelay(err error, attempt int) (time.Duration, string) {
	var reqErr *docintel.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.RetryAfterMS > 0 {
			return capDelay(time.Duration(reqErr.RetryAfterMS) * time.Millisecond), "retry_after_ms"
		}
		if h := strings.TrimSpace(reqErr.RetryAfterHeader); h != "" {
			if n, convErr := strconv.Atoi(h); convErr == nil && n > 0 {
				// The header's unit is ambiguous: values above 1000 are
				// assumed to already be milliseconds, otherwise seconds.
				if n > 1000 {
					return capDelay(time.Duration(n) * time.Millisecond), "retry_after_header"
				}
				return capDelay(time.Duration(n) * time.Second), "retry_after_header"
			}
		}
	}
	if m := reRetryAfterSeconds.FindStringSubmatch(err.Error()); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			return capDelay(time.Duration(n) * time.Second), "message"
		}
	}
	return capDelay(InitialDelay << attempt), "exponential"
}

func capDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxDelay {
		return MaxDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
