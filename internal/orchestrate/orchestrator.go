package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/engine"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
)

// Orchestrator resolves one segment against a ranked engine chain.
type Orchestrator struct {
	cfg     common.OrchestrateConfig
	engines []engine.Engine
	policy  RetryPolicy
	logger  *slog.Logger
}

func New(cfg common.OrchestrateConfig, engines []engine.Engine, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	sorted := make([]engine.Engine, len(engines))
	copy(sorted, engines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Spec().Rank < sorted[j].Spec().Rank
	})
	return &Orchestrator{
		cfg:     cfg,
		engines: sorted,
		policy:  RetryPolicy{BaseDelay: cfg.RetryBaseDelay, MaxDelay: cfg.RetryMaxDelay},
		logger:  logger,
	}
}

// Resolve walks the chain in rank order until a result clears the
// acceptance floor. With cross-validation enabled it keeps walking
// until it has that many accepted results, so the merger can compare
// engines against each other. Attempts are returned for every try,
// accepted or not.
func (o *Orchestrator) Resolve(ctx context.Context, req engine.Request) ([]entity.RawResult, []entity.ExtractionAttempt, error) {
	wanted := 1
	if o.cfg.CrossValidate > 1 {
		wanted = o.cfg.CrossValidate
	}

	needScanned := requiresScanned(req.Pages)

	var accepted []entity.RawResult
	var attempts []entity.ExtractionAttempt

	for _, eng := range o.engines {
		if len(accepted) >= wanted {
			break
		}
		if err := ctx.Err(); err != nil {
			return accepted, attempts, err
		}
		spec := eng.Spec()
		if needScanned && !engine.Supports(spec, constants.CapScanned) {
			o.logger.Debug("orchestrate.engine_skipped",
				"engine", spec.ID, "segment", req.Segment.String(), "reason", "no_scanned_capability")
			continue
		}

		res, tried, ok := o.runEngine(ctx, eng, req)
		attempts = append(attempts, tried...)
		if ok {
			accepted = append(accepted, res)
		}
	}

	if len(accepted) == 0 {
		return nil, attempts, common.WrapError(common.ErrExhausted,
			fmt.Sprintf("segment %s: no engine produced an acceptable result after %d attempts",
				req.Segment, len(attempts)))
	}
	return accepted, attempts, nil
}

// runEngine executes one engine with its retry budget. Transient
// failures back off and retry; timeouts and permanent failures end
// the engine's turn immediately.
func (o *Orchestrator) runEngine(ctx context.Context, eng engine.Engine, req engine.Request) (entity.RawResult, []entity.ExtractionAttempt, bool) {
	spec := eng.Spec()
	var attempts []entity.ExtractionAttempt

	for try := 1; try <= spec.MaxRetries+1; try++ {
		attemptCtx, cancel := context.WithTimeout(ctx, spec.Timeout)
		start := time.Now()
		res, err := eng.Extract(attemptCtx, req)
		elapsed := time.Since(start)
		cancel()

		attempt := entity.ExtractionAttempt{
			EngineID: spec.ID,
			Try:      try,
			Duration: elapsed,
		}

		switch {
		case err == nil:
			if reason := o.rejectReason(res); reason != "" {
				attempt.Outcome = constants.AttemptFailure
				attempt.Reason = reason
				attempts = append(attempts, attempt)
				o.logger.Info("orchestrate.result_rejected",
					"engine", spec.ID, "segment", req.Segment.String(),
					"reason", reason, "confidence", res.Confidence)
				return entity.RawResult{}, attempts, false
			}
			attempt.Outcome = constants.AttemptSuccess
			attempts = append(attempts, attempt)
			o.logger.Info("orchestrate.result_accepted",
				"engine", spec.ID, "segment", req.Segment.String(),
				"confidence", res.Confidence, "try", try,
				"elapsed_ms", elapsed.Milliseconds())
			return res, attempts, true

		case isTimeout(ctx, err):
			attempt.Outcome = constants.AttemptTimeout
			attempt.Reason = "deadline exceeded"
			attempts = append(attempts, attempt)
			o.logger.Warn("orchestrate.engine_timeout",
				"engine", spec.ID, "segment", req.Segment.String(),
				"timeout", spec.Timeout.String())
			return entity.RawResult{}, attempts, false

		case ctx.Err() != nil:
			attempt.Outcome = constants.AttemptFailure
			attempt.Reason = ctx.Err().Error()
			attempts = append(attempts, attempt)
			return entity.RawResult{}, attempts, false

		default:
			attempt.Outcome = constants.AttemptFailure
			attempt.Reason = err.Error()
			attempts = append(attempts, attempt)

			if !isTransient(err) || try > spec.MaxRetries {
				o.logger.Warn("orchestrate.engine_failed",
					"engine", spec.ID, "segment", req.Segment.String(),
					"try", try, "error", err)
				return entity.RawResult{}, attempts, false
			}
			delay := o.policy.Delay(try)
			o.logger.Info("orchestrate.engine_retry",
				"engine", spec.ID, "segment", req.Segment.String(),
				"try", try, "delay", delay.String(), "error", err)
			if serr := o.policy.Sleep(ctx, delay); serr != nil {
				return entity.RawResult{}, attempts, false
			}
		}
	}
	return entity.RawResult{}, attempts, false
}

// rejectReason inspects an error-free result against the acceptance
// floor. An empty string means accepted.
func (o *Orchestrator) rejectReason(res entity.RawResult) string {
	if len(strings.TrimSpace(res.Text)) < o.cfg.MinTextLength {
		return "text yield below minimum"
	}
	if res.Confidence < o.cfg.AcceptConfidence {
		return "confidence below acceptance floor"
	}
	return ""
}

// isTimeout reports whether the attempt hit its own deadline rather
// than the caller's.
func isTimeout(parent context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil
}

func isTransient(err error) bool {
	var ee *engine.Error
	if errors.As(err, &ee) {
		return ee.Kind.Transient()
	}
	return false
}

func requiresScanned(pages []entity.Page) bool {
	for _, p := range pages {
		if !p.HasTextLayer {
			return true
		}
	}
	return false
}
