package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"epcsync/internal/convert"
	"epcsync/internal/domain"
	"epcsync/internal/fingerprint"
	"epcsync/internal/jobs"
	"epcsync/internal/metrics"
	"epcsync/internal/port"
)

// Document is one unit of work: raw bytes under a stable identity.
type Document struct {
	Identity string
	FileName string
	Data     []byte
}

// Result is the terminal (or pending review) outcome of one document.
type Result struct {
	Identity    string                    `json:"identity"`
	FileName    string                    `json:"filename"`
	Fingerprint string                    `json:"fingerprint,omitempty"`
	State       domain.JobState           `json:"status"`
	Stage       string                    `json:"stage"`
	Reason      string                    `json:"reason,omitempty"`
	Extraction  *domain.ExtractionResult  `json:"extraction,omitempty"`
	Outcome     *domain.SubmissionOutcome `json:"submission,omitempty"`
	Err         error                     `json:"-"`
	Error       string                    `json:"error,omitempty"`
	Duration    time.Duration             `json:"duration"`
}

// PipelineConfig holds orchestration policy.
type PipelineConfig struct {
	// AcceptPartial completes a document whose submission had failures as
	// long as at least one group made it to the catalog.
	AcceptPartial bool
	// ReviewMode stops after extraction at pending_review until Approve.
	ReviewMode bool
}

// ArchiveConfig places successfully processed source documents in object
// storage under <Prefix>sources/<fingerprint>/<file name>.
type ArchiveConfig struct {
	Bucket string
	Prefix string
}

type pendingReview struct {
	doc         Document
	fingerprint string
	extraction  *domain.ExtractionResult
}

// Pipeline sequences fingerprint check, conversion, extraction, submission
// and outcome recording for one document at a time. It is safe for
// concurrent use across different identities.
type Pipeline struct {
	tracker   *fingerprint.Tracker
	converter port.Converter
	extractor port.Extractor
	submitter port.Submitter
	registry  *jobs.Registry
	storage   port.ObjectStorage
	archive   ArchiveConfig
	cfg       PipelineConfig

	mu      sync.Mutex
	pending map[string]*pendingReview
}

// NewPipeline creates a Pipeline. registry may be nil for batch runs.
func NewPipeline(
	tracker *fingerprint.Tracker,
	converter port.Converter,
	extractor port.Extractor,
	submitter port.Submitter,
	registry *jobs.Registry,
	cfg PipelineConfig,
) *Pipeline {
	return &Pipeline{
		tracker:   tracker,
		converter: converter,
		extractor: extractor,
		submitter: submitter,
		registry:  registry,
		cfg:       cfg,
		pending:   make(map[string]*pendingReview),
	}
}

// WithArchive enables best-effort archiving of completed source documents.
func (p *Pipeline) WithArchive(storage port.ObjectStorage, cfg ArchiveConfig) *Pipeline {
	p.storage = storage
	p.archive = cfg
	return p
}

// Registry returns the job registry the pipeline reports to, if any.
func (p *Pipeline) Registry() *jobs.Registry {
	return p.registry
}

// Process runs doc to a terminal state, or to pending_review in review mode.
// It never panics and never returns an error: every failure is captured in
// the Result with the stage it happened in.
func (p *Pipeline) Process(ctx context.Context, doc Document) *Result {
	r := p.newRun(doc)
	r.guard(ctx, func() { r.execute(ctx) })
	return r.finish()
}

// Approve submits the record of a document held for review. An edited
// record replaces the extracted one and must pass the same validation; a
// rejected edit leaves the document pending.
func (p *Pipeline) Approve(ctx context.Context, identity string, edited *domain.CatalogRecord) (*Result, error) {
	p.mu.Lock()
	held, ok := p.pending[identity]
	if !ok {
		p.mu.Unlock()
		return nil, domain.ErrJobNotPendingReview
	}
	record := held.extraction.Record
	if edited != nil {
		record = edited
	}
	if violations := p.extractor.Validate(record); len(violations) > 0 {
		p.mu.Unlock()
		return nil, &domain.ValidationError{Attempts: held.extraction.Attempts, Errors: violations}
	}
	delete(p.pending, identity)
	p.mu.Unlock()

	logrus.Infof("service.Pipeline.Approve: %s approved for submission (edited=%t)", identity, edited != nil)

	r := p.newRun(held.doc)
	r.claimed = true
	r.res.Fingerprint = held.fingerprint
	r.res.Extraction = held.extraction
	r.res.State = domain.JobPendingReview
	r.res.Stage = domain.StageReview
	r.update(func(j *domain.Job) { j.Record = record })
	r.guard(ctx, func() { r.submit(ctx, record) })
	return r.finish(), nil
}

// Discard drops a document held for review without submitting it. Nothing
// is recorded, so the same content is processed again next time.
func (p *Pipeline) Discard(identity string) error {
	p.mu.Lock()
	held, ok := p.pending[identity]
	if ok {
		delete(p.pending, identity)
	}
	p.mu.Unlock()
	if !ok {
		return domain.ErrJobNotPendingReview
	}

	p.tracker.Release(identity)
	r := p.newRun(held.doc)
	r.res.Fingerprint = held.fingerprint
	r.skip("discarded during review")
	logrus.Infof("service.Pipeline.Discard: %s discarded", identity)
	return nil
}

// PendingReview lists identities currently held for review.
func (p *Pipeline) PendingReview() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.pending))
	for id := range p.pending {
		out = append(out, id)
	}
	return out
}

// run carries one document through the state machine.
type run struct {
	p        *Pipeline
	doc      Document
	res      *Result
	started  time.Time
	claimed  bool
	recorded bool
}

func (p *Pipeline) newRun(doc Document) *run {
	if doc.FileName == "" {
		doc.FileName = filepath.Base(doc.Identity)
	}
	return &run{
		p:       p,
		doc:     doc,
		started: time.Now(),
		res: &Result{
			Identity: doc.Identity,
			FileName: doc.FileName,
			State:    domain.JobQueued,
			Stage:    domain.StageQueued,
		},
	}
}

// guard runs fn and turns a panic into a Failed result at the current stage.
func (r *run) guard(ctx context.Context, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			logrus.Errorf("service.Pipeline: panic while processing %s at %s: %v\n%s",
				r.doc.Identity, r.res.Stage, v, debug.Stack())
			r.fail(ctx, r.res.Stage, fmt.Errorf("internal error: %v", v))
		}
	}()
	fn()
}

func (r *run) finish() *Result {
	r.res.Duration = time.Since(r.started)
	if r.res.Err != nil {
		r.res.Error = r.res.Err.Error()
	}
	metrics.DocumentsProcessed.WithLabelValues(string(r.res.State)).Inc()
	return r.res
}

func (r *run) execute(ctx context.Context) {
	p := r.p
	fp := fingerprint.Fingerprint(r.doc.Data)
	r.res.Fingerprint = fp
	r.res.Stage = domain.StageFingerprint
	r.update(func(j *domain.Job) {
		j.Fingerprint = fp
		j.Stage = domain.StageFingerprint
	})

	ok, err := p.tracker.ShouldProcessFingerprint(ctx, r.doc.Identity, fp)
	switch {
	case errors.Is(err, domain.ErrInFlight):
		// The job entry belongs to the run that holds the claim.
		r.res.State = domain.JobSkipped
		r.res.Stage = domain.StageSkipped
		r.res.Reason = "already being processed"
		logrus.Infof("service.Pipeline: skipping %s: already being processed", r.doc.Identity)
		return
	case err != nil:
		logrus.WithFields(logrus.Fields{"identity": r.doc.Identity, "stage": domain.StageFingerprint}).
			Warnf("service.Pipeline: fingerprint store unavailable, processing anyway: %v", err)
	case !ok:
		r.skip("already processed with identical content")
		return
	}
	r.claimed = true

	r.transition(domain.JobConverting, domain.StageConversion)
	convStart := time.Now()
	text, err := p.converter.Convert(ctx, r.doc.FileName, r.doc.Data)
	metrics.ObserveStage(domain.StageConversion, convStart)
	if err != nil {
		r.fail(ctx, domain.StageConversion, err)
		return
	}

	r.transition(domain.JobExtracting, domain.StageExtraction)
	extStart := time.Now()
	extraction, err := p.extractor.Extract(ctx, text)
	metrics.ObserveStage(domain.StageExtraction, extStart)
	r.res.Extraction = extraction
	if extraction != nil {
		r.update(func(j *domain.Job) {
			j.Attempts = extraction.Attempts
			j.Record = extraction.Record
		})
	}
	if err != nil {
		r.fail(ctx, domain.StageExtraction, err)
		return
	}
	if extraction == nil {
		r.fail(ctx, domain.StageExtraction, errors.New("extractor returned no result"))
		return
	}
	if !extraction.OK() {
		r.fail(ctx, domain.StageExtraction, &domain.ValidationError{Attempts: extraction.Attempts, Errors: extraction.Errors})
		return
	}

	if p.cfg.ReviewMode {
		p.mu.Lock()
		p.pending[r.doc.Identity] = &pendingReview{doc: r.doc, fingerprint: fp, extraction: extraction}
		p.mu.Unlock()
		r.transition(domain.JobPendingReview, domain.StageReview)
		logrus.Infof("service.Pipeline: %s extracted %d group(s), waiting for review",
			r.doc.Identity, len(extraction.Record.Groups))
		return
	}

	r.submit(ctx, extraction.Record)
}

func (r *run) submit(ctx context.Context, record *domain.CatalogRecord) {
	p := r.p
	r.transition(domain.JobSubmitting, domain.StageSubmission)
	subStart := time.Now()
	outcome, err := p.submitter.Submit(ctx, record)
	metrics.ObserveStage(domain.StageSubmission, subStart)
	r.res.Outcome = outcome
	if outcome != nil {
		r.update(func(j *domain.Job) { j.Outcome = outcome })
	}
	if err != nil {
		r.fail(ctx, domain.StageSubmission, err)
		return
	}

	if outcome.HasFailures() {
		partial := domain.NewPartialSubmissionError(outcome)
		if !p.cfg.AcceptPartial || !outcome.AnySucceeded() {
			r.fail(ctx, domain.StageSubmission, partial)
			return
		}
		r.res.Reason = partial.Error()
		logrus.Warnf("service.Pipeline: %s accepted with partial submission: %v", r.doc.Identity, partial)
	}
	r.complete(ctx)
}

func (r *run) complete(ctx context.Context) {
	r.res.State = domain.JobCompleted
	r.res.Stage = domain.StageCompleted
	r.update(func(j *domain.Job) {
		j.State = domain.JobCompleted
		j.Stage = domain.StageCompleted
		j.Error = r.res.Reason
	})
	r.record(ctx, true, domain.StageCompleted, r.details())
	r.p.archiveSource(ctx, r.doc, r.res.Fingerprint)
	logrus.WithFields(logrus.Fields{"identity": r.doc.Identity, "stage": domain.StageCompleted}).
		Infof("service.Pipeline: %s completed", r.doc.Identity)
}

// fail moves the document to Failed at stage. The user-visible error always
// names the identity, the stage and the last error detail.
func (r *run) fail(ctx context.Context, stage string, err error) {
	if r.res.State.Terminal() {
		return
	}
	r.res.State = domain.JobFailed
	r.res.Stage = stage
	r.res.Err = err
	r.update(func(j *domain.Job) {
		j.State = domain.JobFailed
		j.Stage = stage
		j.ErrorStage = stage
		j.Error = err.Error()
	})
	details := r.details()
	details["error"] = err.Error()
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		details["validation_errors"] = ve.Errors
	}
	r.record(ctx, false, stage, details)
	logrus.WithFields(logrus.Fields{"identity": r.doc.Identity, "stage": stage}).
		Errorf("service.Pipeline: %s failed at %s: %v", r.doc.Identity, stage, err)
}

func (r *run) skip(reason string) {
	r.res.State = domain.JobSkipped
	r.res.Stage = domain.StageSkipped
	r.res.Reason = reason
	r.update(func(j *domain.Job) {
		j.State = domain.JobSkipped
		j.Stage = domain.StageSkipped
		j.Error = reason
	})
	logrus.Infof("service.Pipeline: skipping %s: %s", r.doc.Identity, reason)
}

func (r *run) transition(state domain.JobState, stage string) {
	r.res.State = state
	r.res.Stage = stage
	r.update(func(j *domain.Job) {
		j.State = state
		j.Stage = stage
	})
	logrus.WithFields(logrus.Fields{"identity": r.doc.Identity, "stage": stage}).
		Debugf("service.Pipeline: %s -> %s", r.doc.Identity, state)
}

// record persists the outcome once per run. It outlives a cancelled job
// context so a cancelled document still leaves its failure behind.
func (r *run) record(ctx context.Context, success bool, stage string, details map[string]interface{}) {
	if !r.claimed || r.recorded {
		return
	}
	r.recorded = true
	if err := r.p.tracker.RecordFingerprint(context.WithoutCancel(ctx), r.doc.Identity, r.res.Fingerprint, success, stage, details); err != nil {
		logrus.Errorf("service.Pipeline: recording outcome for %s failed: %v", r.doc.Identity, err)
	}
}

func (r *run) details() map[string]interface{} {
	d := map[string]interface{}{"filename": r.doc.FileName}
	if r.res.Extraction != nil {
		d["attempts"] = r.res.Extraction.Attempts
	}
	if r.res.Outcome != nil {
		d["submission"] = r.res.Outcome.Counts()
	}
	return d
}

func (r *run) update(fn func(*domain.Job)) {
	if r.p.registry == nil {
		return
	}
	if _, err := r.p.registry.Update(r.doc.Identity, fn); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
		logrus.Warnf("service.Pipeline: updating job %s: %v", r.doc.Identity, err)
	}
}

func (p *Pipeline) archiveSource(ctx context.Context, doc Document, fp string) {
	if p.storage == nil || p.archive.Bucket == "" {
		return
	}
	contentType := "text/plain"
	if ft, err := convert.DetectType(doc.FileName, doc.Data); err == nil && ft == domain.FileTypePDF {
		contentType = "application/pdf"
	}
	key := fmt.Sprintf("%ssources/%s/%s", p.archive.Prefix, fp, path.Base(doc.FileName))
	_, err := p.storage.Upload(context.WithoutCancel(ctx), port.UploadInput{
		Bucket:      p.archive.Bucket,
		Key:         key,
		Body:        bytes.NewReader(doc.Data),
		ContentType: contentType,
		Size:        int64(len(doc.Data)),
	})
	if err != nil {
		logrus.Warnf("service.Pipeline: archiving %s to s3://%s/%s failed: %v", doc.Identity, p.archive.Bucket, key, err)
	}
}
