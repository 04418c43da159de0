package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/purchasing-tools/po-extract/constants"
	"github.com/purchasing-tools/po-extract/internal/common"
	"github.com/purchasing-tools/po-extract/internal/docintel"
	"github.com/purchasing-tools/po-extract/internal/extract"
	"github.com/purchasing-tools/po-extract/internal/history"
)

// PageFile is one page awaiting analysis.
type PageFile struct {
	Path string
	Name string
}

// PageFailure is a page whose attempts were all exhausted.
type PageFailure struct {
	Source     string
	Message    string
	StatusCode int
	Attempts   int
}

// RunResult is the outcome of one sequential run over a page set.
type RunResult struct {
	RunID    uuid.UUID
	Record   extract.DocumentRecord
	Pages    int
	Analyzed int
	Failures []PageFailure
}

// Clean reports whether the run completed without permanent page failures.
func (r *RunResult) Clean() bool { return len(r.Failures) == 0 }

// Processor drives all pages of a run sequentially, one outstanding request
// at a time, to respect the service's rate limits. Failed pages are queued
// and retried once more after the first pass with a fixed longer delay.
type Processor struct {
	Logger   *slog.Logger
	Analyzer docintel.Analyzer
	Retrier  *extract.Retrier
	Pacing   common.PacingConfig
	History  *history.Store // optional

	// Provenance tags every row with the page it came from.
	Provenance bool

	sleep func(ctx context.Context, d time.Duration) error
}

func NewProcessor(logger *slog.Logger, analyzer docintel.Analyzer, pacing common.PacingConfig, hist *history.Store) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:   logger,
		Analyzer: analyzer,
		Retrier:  extract.NewRetrier(logger),
		Pacing:   pacing,
		History:  hist,
		sleep:    sleepContext,
	}
}

type pageOutcome struct {
	page   PageFile
	record extract.DocumentRecord
}

// Run analyzes every page in order and aggregates the results into one
// logical document. Per-page terminal failures are collected, not fatal;
// config or IO problems abort the run.
func (p *Processor) Run(ctx context.Context, kind constants.DocKind, pages []PageFile) (*RunResult, error) {
	runID := uuid.New()
	start := time.Now()
	p.recordRunStart(ctx, runID, kind, len(pages))

	p.Logger.Info("run.start", "run_id", runID, "kind", string(kind), "pages", len(pages))

	// delay is the only cross-page shared state: it starts at the configured
	// inter-page pacing and doubles (capped) once any page reports an
	// explicit rate limit, for the remainder of the run.
	delay := p.Pacing.InterPageDelay

	var outcomes []pageOutcome
	var deferred []PageFile
	var failures []PageFailure

	for i, page := range pages {
		if i > 0 {
			if err := p.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
		outcome, rateLimited, err := p.analyzePage(ctx, kind, page)
		if rateLimited {
			delay = escalate(delay, p.Pacing.MaxInterPageDelay)
			p.Logger.Info("run.pacing_escalated", "run_id", runID, "delay_ms", delay.Milliseconds())
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.Logger.Warn("run.page_deferred", "run_id", runID, "source", page.Name)
			deferred = append(deferred, page)
			continue
		}
		outcomes = append(outcomes, *outcome)
		p.recordPage(ctx, runID, page.Name, outcome.record, nil)
	}

	// Second tier: one uniform slow retry for everything that failed the
	// fast inline protocol.
	for _, page := range deferred {
		if err := p.sleep(ctx, p.Pacing.SecondPassDelay); err != nil {
			return nil, err
		}
		outcome, _, err := p.analyzePage(ctx, kind, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failure := asFailure(page, err)
			failures = append(failures, failure)
			p.recordPage(ctx, runID, page.Name, extract.DocumentRecord{}, &failure)
			continue
		}
		outcomes = append(outcomes, *outcome)
		p.recordPage(ctx, runID, page.Name, outcome.record, nil)
	}

	records := make([]extract.DocumentRecord, 0, len(outcomes))
	for _, o := range outcomes {
		if p.Provenance {
			extract.AttachProvenance(o.record.Items, o.page.Name)
		}
		records = append(records, o.record)
	}

	result := &RunResult{
		RunID:    runID,
		Record:   extract.Aggregate(kind, records),
		Pages:    len(pages),
		Analyzed: len(outcomes),
		Failures: failures,
	}
	p.recordRunFinish(ctx, runID, result)

	p.Logger.Info("run.done",
		"run_id", runID,
		"pages", result.Pages,
		"analyzed", result.Analyzed,
		"items", len(result.Record.Items),
		"permanent_failures", len(result.Failures),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (p *Processor) analyzePage(ctx context.Context, kind constants.DocKind, page PageFile) (*pageOutcome, bool, error) {
	doc, err := os.ReadFile(page.Path)
	if err != nil {
		return nil, false, fmt.Errorf("read page %s: %w", page.Path, err)
	}
	req := docintel.AnalysisRequest{
		DocumentBytes: doc,
		Kind:          kind,
		SourceName:    page.Name,
	}
	res, rateLimited, err := p.Retrier.Analyze(ctx, p.Analyzer, req)
	if err != nil {
		return nil, rateLimited, err
	}
	record := extract.ExtractRecord(res, kind, p.Logger)
	return &pageOutcome{page: page, record: record}, rateLimited, nil
}

func asFailure(page PageFile, err error) PageFailure {
	failure := PageFailure{Source: page.Name, Message: err.Error(), Attempts: 1}
	if term, ok := err.(*extract.TerminalError); ok {
		failure.Message = term.Message
		failure.StatusCode = term.StatusCode
		failure.Attempts = term.Attempts
	}
	return failure
}

func escalate(d, max time.Duration) time.Duration {
	d *= 2
	if max > 0 && d > max {
		return max
	}
	return d
}

func (p *Processor) recordRunStart(ctx context.Context, runID uuid.UUID, kind constants.DocKind, pages int) {
	if p.History == nil {
		return
	}
	if err := p.History.StartRun(ctx, runID, string(kind), pages); err != nil {
		p.Logger.Warn("history.start_run_failed", "run_id", runID, "error", err)
	}
}

func (p *Processor) recordPage(ctx context.Context, runID uuid.UUID, source string, rec extract.DocumentRecord, failure *PageFailure) {
	if p.History == nil {
		return
	}
	status := constants.PageStatusOK
	errMsg := ""
	statusCode := 0
	if failure != nil {
		status = constants.PageStatusFailed
		errMsg = failure.Message
		statusCode = failure.StatusCode
	} else if len(rec.Items) == 0 {
		status = constants.PageStatusEmpty
	}
	if err := p.History.RecordPage(ctx, runID, source, status, len(rec.Items), errMsg, statusCode); err != nil {
		p.Logger.Warn("history.record_page_failed", "run_id", runID, "source", source, "error", err)
	}
}

func (p *Processor) recordRunFinish(ctx context.Context, runID uuid.UUID, result *RunResult) {
	if p.History == nil {
		return
	}
	if err := p.History.FinishRun(ctx, runID, result.Analyzed, len(result.Failures)); err != nil {
		p.Logger.Warn("history.finish_run_failed", "run_id", runID, "error", err)
	}
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
