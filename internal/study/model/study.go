// Package model defines the persisted study and user records plus the
// message and status payloads used by the verification flow.
package model

import (
	"time"

	verifymodel "codehosp/internal/verify/model"
)

// Study is one uploaded research study. Dataset and analysis script
// live in object storage; only their keys are stored here.
type Study struct {
	ID             int64                   `json:"id"`
	Title          string                  `json:"title"`
	AuthorID       int64                   `json:"author_id"`
	Field          string                  `json:"field"`
	DataKey        string                  `json:"data_key"`
	CodeKey        string                  `json:"code_key"`
	ExpectedOutput string                  `json:"expected_output"`
	Status         verifymodel.StudyStatus `json:"status"`
	Verifications  int                     `json:"verifications"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`

	// Result holds the latest verification outcome, nil before the
	// first attempt completes.
	Result *verifymodel.VerificationResult `json:"result,omitempty"`
}

// User is the subset of the account record the verification flow
// touches when awarding contribution points.
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Points        int    `json:"points"`
	Studies       int    `json:"studies"`
	Contributions int    `json:"contributions"`
}

// VerifyMessage is the Kafka payload for queued verification tasks.
type VerifyMessage struct {
	StudyID int64 `json:"study_id"`
	UserID  int64 `json:"user_id"`
}

// Verification lifecycle states reported while a task is in flight.
type VerifyState string

const (
	StateQueued   VerifyState = "Queued"
	StateRunning  VerifyState = "Running"
	StateFinished VerifyState = "Finished"
	StateFailed   VerifyState = "Failed"
)

// VerificationStatus is the live progress record kept in Redis while a
// verification runs and for a bounded window afterwards.
type VerificationStatus struct {
	StudyID     int64                           `json:"study_id"`
	State       VerifyState                     `json:"state"`
	StudyStatus verifymodel.StudyStatus         `json:"study_status,omitempty"`
	Result      *verifymodel.VerificationResult `json:"result,omitempty"`
	Error       string                          `json:"error,omitempty"`
	ReceivedAt  int64                           `json:"received_at"`
	FinishedAt  int64                           `json:"finished_at,omitempty"`
}
