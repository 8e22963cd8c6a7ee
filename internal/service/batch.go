package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"epcsync/internal/domain"
	"epcsync/internal/retry"
)

// BatchConfig controls how many documents run at once and the pause each
// worker takes between documents.
type BatchConfig struct {
	Concurrency  int
	PauseBetween time.Duration
}

// Summary aggregates the results of one batch run.
type Summary struct {
	Total         int           `json:"total"`
	Completed     int           `json:"completed"`
	Failed        int           `json:"failed"`
	Skipped       int           `json:"skipped"`
	PendingReview int           `json:"pending_review"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Results       []*Result     `json:"results"`
}

// Batch runs many documents through a Pipeline. One document's failure never
// affects another.
type Batch struct {
	pipeline *Pipeline
	cfg      BatchConfig
	sleep    retry.Sleeper
}

// NewBatch creates a Batch. Concurrency below 1 means sequential.
func NewBatch(pipeline *Pipeline, cfg BatchConfig) *Batch {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Batch{pipeline: pipeline, cfg: cfg, sleep: retry.Sleep}
}

// WithSleeper replaces the pause between documents (for testing).
func (b *Batch) WithSleeper(s retry.Sleeper) *Batch {
	b.sleep = s
	return b
}

// Run processes docs and returns results in input order. Documents not
// started before ctx is cancelled are reported as skipped.
func (b *Batch) Run(ctx context.Context, docs []Document) *Summary {
	summary := &Summary{StartedAt: time.Now().UTC(), Total: len(docs)}
	results := make([]*Result, len(docs))

	logrus.Infof("service.Batch.Run: processing %d document(s) (concurrency=%d, pause=%s)",
		len(docs), b.cfg.Concurrency, b.cfg.PauseBetween)

	g := new(errgroup.Group)
	g.SetLimit(b.cfg.Concurrency)
	for i := range docs {
		i, doc := i, docs[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = cancelledResult(doc)
				return nil
			}
			logrus.Infof("service.Batch.Run: [%d/%d] %s", i+1, len(docs), doc.Identity)
			results[i] = b.pipeline.Process(ctx, doc)
			if b.cfg.PauseBetween > 0 && i < len(docs)-1 {
				_ = b.sleep(ctx, b.cfg.PauseBetween)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Results = results
	summary.Duration = time.Since(summary.StartedAt)
	for _, r := range results {
		switch r.State {
		case domain.JobCompleted:
			summary.Completed++
		case domain.JobFailed:
			summary.Failed++
		case domain.JobSkipped:
			summary.Skipped++
		case domain.JobPendingReview:
			summary.PendingReview++
		}
	}
	summary.Log()
	return summary
}

// Log writes the run summary and one line per failed document.
func (s *Summary) Log() {
	logrus.Infof("service.Batch: %d document(s) in %s: %d completed, %d failed, %d skipped, %d pending review",
		s.Total, s.Duration.Round(time.Millisecond), s.Completed, s.Failed, s.Skipped, s.PendingReview)
	for _, r := range s.Results {
		if r.State == domain.JobFailed {
			logrus.Errorf("service.Batch: %s failed at %s: %s", r.Identity, r.Stage, r.Error)
		}
	}
}

func cancelledResult(doc Document) *Result {
	return &Result{
		Identity: doc.Identity,
		FileName: doc.FileName,
		State:    domain.JobSkipped,
		Stage:    domain.StageSkipped,
		Reason:   "batch cancelled before start",
	}
}
