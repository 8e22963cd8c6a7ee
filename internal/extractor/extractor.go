package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sirupsen/logrus"

	"epcsync/internal/domain"
	"epcsync/internal/metrics"
	"epcsync/internal/port"
	"epcsync/internal/retry"
)

// Config holds the attempt budgets of an Extractor.
type Config struct {
	MaxAttempts        int
	TransportRetries   int
	TransportBaseDelay time.Duration
	TransportMaxDelay  time.Duration
	AllowEmptyGroups   bool
	PromptSuffix       string
}

// Extractor drives the model through a bounded, strictly sequential
// extract-validate-correct loop. It implements port.Extractor.
type Extractor struct {
	model   port.ModelClient
	cfg     Config
	schema  *jsonschema.Schema
	system  string
	backoff retry.Backoff
	sleep   retry.Sleeper
}

// New creates an Extractor. The attempt budget must be positive.
func New(model port.ModelClient, cfg Config) (*Extractor, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, &domain.ConfigurationError{Problems: []string{"extraction attempt budget must be greater than 0"}}
	}
	if cfg.TransportRetries < 0 {
		cfg.TransportRetries = 0
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	return &Extractor{
		model:  model,
		cfg:    cfg,
		schema: schema,
		system: BuildSystemPrompt(cfg.PromptSuffix),
		backoff: retry.Backoff{
			Base:     cfg.TransportBaseDelay,
			Max:      cfg.TransportMaxDelay,
			Attempts: cfg.TransportRetries + 1,
		},
		sleep: retry.Sleep,
	}, nil
}

// WithSleeper replaces the wait used between transport retries (for testing).
func (e *Extractor) WithSleeper(s retry.Sleeper) *Extractor {
	e.sleep = s
	return e
}

// attemptState is everything one attempt depends on. Each attempt is a pure
// function of its state; the next state is derived from the previous result.
type attemptState struct {
	input       string
	priorErrors []string
	number      int
}

func (s attemptState) next(errs []string) attemptState {
	return attemptState{input: s.input, priorErrors: errs, number: s.number + 1}
}

// Extract runs the loop. A valid record returns immediately; an exhausted
// budget returns a result carrying the last attempt's errors and a nil error.
// A non-nil error means the extraction was aborted (transport, auth or
// cancellation) and the partial result holds the attempts made so far.
func (e *Extractor) Extract(ctx context.Context, text string) (*domain.ExtractionResult, error) {
	result := &domain.ExtractionResult{}
	state := attemptState{input: text, number: 1}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		started := time.Now()
		logrus.WithField("attempt", state.number).Infof("extractor.Extract: attempt %d/%d", state.number, e.cfg.MaxAttempts)

		raw, transportFailures, err := e.complete(ctx, BuildUserPrompt(state.input, state.priorErrors))
		report := domain.AttemptReport{Number: state.number, TransportErrors: transportFailures}
		result.Attempts = state.number

		if err != nil {
			report.Duration = time.Since(started)
			report.Errors = []string{err.Error()}
			result.History = append(result.History, report)
			metrics.ExtractionAttempts.WithLabelValues("transport_error").Inc()
			logrus.Errorf("extractor.Extract: attempt %d aborted: %v", state.number, err)
			return result, err
		}

		record, errs := e.evaluate(raw)
		report.Duration = time.Since(started)
		report.Errors = errs
		result.History = append(result.History, report)

		if len(errs) == 0 {
			metrics.ExtractionAttempts.WithLabelValues("valid").Inc()
			logrus.Infof("extractor.Extract: valid record on attempt %d (%d groups, %d entries)",
				state.number, len(record.Groups), record.EntryCount())
			result.Record = record
			result.Errors = nil
			return result, nil
		}

		metrics.ExtractionAttempts.WithLabelValues("invalid").Inc()
		result.Errors = errs
		logrus.Warnf("extractor.Extract: attempt %d failed validation with %d error(s)", state.number, len(errs))

		if state.number >= e.cfg.MaxAttempts {
			return result, nil
		}
		state = state.next(errs)
	}
}

// complete calls the model, retrying retryable transport failures with the
// same prompt up to the transport sub-budget. It returns the number of
// transport failures seen.
func (e *Extractor) complete(ctx context.Context, userPrompt string) (string, int, error) {
	failures := 0
	for {
		out, err := e.model.Complete(ctx, e.system, userPrompt)
		if err == nil {
			return out, failures, nil
		}
		failures++
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", failures, ctxErr
		}

		var te *domain.TransportError
		if !errors.As(err, &te) || !te.Retryable() || failures > e.cfg.TransportRetries {
			return "", failures, err
		}

		wait := e.backoff.Wait(failures-1, te.RetryAfter)
		logrus.Warnf("extractor.complete: transport error (%d/%d), retrying in %s: %v",
			failures, e.cfg.TransportRetries, wait, err)
		if err := e.sleep(ctx, wait); err != nil {
			return "", failures, err
		}
	}
}

// evaluate parses and validates one model output, collecting every violation.
func (e *Extractor) evaluate(raw string) (*domain.CatalogRecord, []string) {
	v, parseErr := decodeJSON(raw)
	if parseErr != "" {
		return nil, []string{parseErr}
	}

	errs := schemaViolations(e.schema, v)

	b, err := json.Marshal(v)
	if err != nil {
		return nil, append(errs, fmt.Sprintf("JSON parsing error: %v", err))
	}
	var record domain.CatalogRecord
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(&record); err != nil {
		// Type mismatches are already reported by the schema.
		if len(errs) == 0 {
			errs = append(errs, fmt.Sprintf("record does not match the expected structure: %v", err))
		}
		return nil, errs
	}

	errs = append(errs, semanticViolations(&record, e.cfg.AllowEmptyGroups)...)
	if len(errs) > 0 {
		return nil, errs
	}
	return &record, nil
}

// Validate checks an already structured record (for example one edited during
// review) against the same contract used for model output.
func (e *Extractor) Validate(record *domain.CatalogRecord) []string {
	if record == nil {
		return []string{"record: missing"}
	}
	normalized := domain.CatalogRecord{Groups: make([]domain.Group, len(record.Groups))}
	for i, g := range record.Groups {
		if g.Entries == nil {
			g.Entries = []domain.Entry{}
		}
		normalized.Groups[i] = g
	}
	b, err := json.Marshal(normalized)
	if err != nil {
		return []string{fmt.Sprintf("record: %v", err)}
	}
	_, errs := e.evaluate(string(b))
	return errs
}
