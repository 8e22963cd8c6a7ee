package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"epcsync/internal/domain"
	"epcsync/internal/jobs"
)

// QueueConfig holds settings for the queue worker.
type QueueConfig struct {
	Concurrency int
	Buffer      int
	JobTimeout  time.Duration
}

// QueueWorker processes uploaded documents in the background, bounded by a
// semaphore. Every job runs under its own cancellable context registered with
// the job registry.
type QueueWorker struct {
	pipeline *Pipeline
	registry *jobs.Registry
	cfg      QueueConfig
	queue    chan queuedDoc
	wg       sync.WaitGroup
}

// queuedDoc pins a document to the job created for it, so a job that was
// cancelled or replaced while waiting is recognised at dispatch.
type queuedDoc struct {
	doc   Document
	jobID uuid.UUID
}

// NewQueueWorker creates a new QueueWorker.
func NewQueueWorker(pipeline *Pipeline, registry *jobs.Registry, cfg QueueConfig) *QueueWorker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Buffer < 1 {
		cfg.Buffer = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 15 * time.Minute
	}
	return &QueueWorker{
		pipeline: pipeline,
		registry: registry,
		cfg:      cfg,
		queue:    make(chan queuedDoc, cfg.Buffer),
	}
}

// Enqueue registers a queued job for doc and hands it to the worker. It
// fails with domain.ErrJobActive when the identity already has a running
// job and with domain.ErrQueueFull when the buffer is full.
func (w *QueueWorker) Enqueue(doc Document) (*domain.Job, error) {
	job, err := w.registry.Create(doc.Identity, doc.FileName)
	if err != nil {
		return nil, err
	}
	select {
	case w.queue <- queuedDoc{doc: doc, jobID: job.ID}:
		logrus.Infof("queueWorker: queued %s (job %s)", doc.Identity, job.ID)
		return job, nil
	default:
		w.registry.Remove(doc.Identity)
		return nil, domain.ErrQueueFull
	}
}

// Start runs the dispatch loop until ctx is canceled. It blocks until all
// in-flight jobs have finished; documents still queued are marked failed.
func (w *QueueWorker) Start(ctx context.Context) {
	sem := make(chan struct{}, w.cfg.Concurrency)

	logrus.Infof("queueWorker: started (concurrency=%d, buffer=%d)", w.cfg.Concurrency, w.cfg.Buffer)

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return
		case qd := <-w.queue:
			select {
			case sem <- struct{}{}: // acquire
			case <-ctx.Done():
				w.abandon(qd)
				w.shutdown()
				return
			}

			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				defer func() { <-sem }() // release

				// In-flight jobs finish even during shutdown; only an explicit
				// cancel or the timeout stops them.
				doc := qd.doc
				jobCtx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
				defer cancel()
				if !w.registry.Begin(doc.Identity, qd.jobID, cancel) {
					logrus.Infof("queueWorker: %s (job %s) cancelled before dispatch", doc.Identity, qd.jobID)
					return
				}

				logrus.Infof("queueWorker: dispatching %s", doc.Identity)
				res := w.pipeline.Process(jobCtx, doc)
				logrus.Infof("queueWorker: %s finished as %s in %s", doc.Identity, res.State, res.Duration.Round(time.Millisecond))
			}()
		}
	}
}

func (w *QueueWorker) shutdown() {
	logrus.Info("queueWorker: shutting down, waiting for in-flight jobs...")
	for {
		select {
		case qd := <-w.queue:
			w.abandon(qd)
		default:
			w.wg.Wait()
			logrus.Info("queueWorker: shutdown complete")
			return
		}
	}
}

func (w *QueueWorker) abandon(qd queuedDoc) {
	w.registry.Abort(qd.doc.Identity, qd.jobID, "server shut down before processing started")
}
