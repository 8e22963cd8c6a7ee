package domain

// FileType represents the document formats accepted by the pipeline.
type FileType string

const (
	FileTypePDF      FileType = "pdf"
	FileTypeMarkdown FileType = "md"
	FileTypeText     FileType = "txt"
)

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":      FileTypePDF,
	"md":       FileTypeMarkdown,
	"markdown": FileTypeMarkdown,
	"txt":      FileTypeText,
}

// JobState is the lifecycle state of a document in the pipeline.
type JobState string

const (
	JobQueued        JobState = "queued"
	JobConverting    JobState = "converting"
	JobExtracting    JobState = "extracting"
	JobPendingReview JobState = "pending_review"
	JobSubmitting    JobState = "submitting"
	JobCompleted     JobState = "completed"
	JobFailed        JobState = "failed"
	JobSkipped       JobState = "skipped"
)

// Terminal reports whether no further transitions are possible from s.
func (s JobState) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobSkipped:
		return true
	}
	return false
}

// SubmissionStatus is the per-entity result of a remote create call.
type SubmissionStatus string

const (
	SubmissionCreated SubmissionStatus = "created"
	SubmissionSkipped SubmissionStatus = "skipped"
	SubmissionFailed  SubmissionStatus = "failed"
)

// Stage labels used in job status and processing records.
const (
	StageQueued      = "queued"
	StageFingerprint = "fingerprint_check"
	StageConversion  = "pdf_conversion"
	StageExtraction  = "ai_extraction"
	StageReview      = "pending_review"
	StageSubmission  = "epc_submission"
	StageCompleted   = "completed"
	StageSkipped     = "skipped"
)

// TransportScope distinguishes model transport failures from catalog API failures.
type TransportScope string

const (
	ScopeModel  TransportScope = "model"
	ScopeRemote TransportScope = "remote"
)
