// Package model defines the data structures flowing through the
// study verification pipeline.
package model

// Status represents the fine-grained outcome of one verification attempt.
type Status string

const (
	StatusMatch    Status = "match"
	StatusClose    Status = "close"
	StatusPartial  Status = "partial"
	StatusMismatch Status = "mismatch"
	StatusError    Status = "error"
)

// StudyStatus is the coarse classification persisted on the study record.
type StudyStatus string

const (
	StudyPending  StudyStatus = "pending"
	StudyVerified StudyStatus = "verified"
	StudyPartial  StudyStatus = "partial"
	StudyIssues   StudyStatus = "issues"
)

// SubmissionRequest carries everything needed for one verification run.
// It is built per call and discarded once the result is produced.
type SubmissionRequest struct {
	SourceCode     string `json:"source_code"`
	DatasetContent string `json:"dataset_content"`
	ExpectedOutput string `json:"expected_output"`
}

// SecurityVerdict is the outcome of static vetting.
// Violation is empty when Safe is true.
type SecurityVerdict struct {
	Safe      bool   `json:"safe"`
	Violation string `json:"violation,omitempty"`
}

// ExecutionOutcome captures raw sandbox output.
// Stderr is empty when execution produced no error stream.
type ExecutionOutcome struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// VerificationResult is the terminal artifact of the pipeline.
type VerificationResult struct {
	Status         Status `json:"status"`
	Output         string `json:"output"`
	ExpectedOutput string `json:"expectedOutput"`
	Details        string `json:"details"`
}

// StudyStatusFor collapses a verification status onto the study record.
func StudyStatusFor(status Status) StudyStatus {
	switch status {
	case StatusMatch, StatusClose:
		return StudyVerified
	case StatusPartial:
		return StudyPartial
	default:
		return StudyIssues
	}
}

// Contribution points awarded per verification outcome.
const (
	PointsFull    = 100
	PointsPartial = 40
	PointsPublish = 50
)

// PointsFor returns the contribution points earned by one verification attempt.
func PointsFor(status Status) int {
	switch status {
	case StatusMatch, StatusClose:
		return PointsFull
	case StatusPartial:
		return PointsPartial
	default:
		return 0
	}
}
