package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codehosp/internal/common/cache"
	"codehosp/internal/study/model"
	appErr "codehosp/pkg/errors"
)

const statusKeyPrefix = "verify:status:"

// StatusRepository keeps live verification progress in Redis.
type StatusRepository struct {
	cache cache.Cache
	TTL   time.Duration
}

// NewStatusRepository creates a new repository.
func NewStatusRepository(cacheClient cache.Cache, ttl time.Duration) *StatusRepository {
	return &StatusRepository{cache: cacheClient, TTL: ttl}
}

// Get returns progress for one study.
func (r *StatusRepository) Get(ctx context.Context, studyID int64) (model.VerificationStatus, error) {
	if studyID <= 0 {
		return model.VerificationStatus{}, appErr.ValidationError("study_id", "required")
	}
	if r.cache == nil {
		return model.VerificationStatus{}, appErr.New(appErr.CacheError).WithMessage("cache client is not initialized")
	}
	val, err := r.cache.Get(ctx, statusKey(studyID))
	if err != nil || val == "" {
		return model.VerificationStatus{}, appErr.New(appErr.VerificationNotFound)
	}
	var status model.VerificationStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return model.VerificationStatus{}, appErr.Wrapf(err, appErr.CacheError, "decode status failed")
	}
	return status, nil
}

// Save persists progress.
func (r *StatusRepository) Save(ctx context.Context, status model.VerificationStatus) error {
	if status.StudyID <= 0 {
		return appErr.ValidationError("study_id", "required")
	}
	if r.cache == nil {
		return appErr.New(appErr.CacheError).WithMessage("cache client is not initialized")
	}
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status failed: %w", err)
	}
	if err := r.cache.Set(ctx, statusKey(status.StudyID), string(data), r.TTL); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "store status failed")
	}
	return nil
}

// Delete removes progress for one study.
func (r *StatusRepository) Delete(ctx context.Context, studyID int64) error {
	if studyID <= 0 {
		return appErr.ValidationError("study_id", "required")
	}
	if r.cache == nil {
		return appErr.New(appErr.CacheError).WithMessage("cache client is not initialized")
	}
	if err := r.cache.Del(ctx, statusKey(studyID)); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "delete status failed")
	}
	return nil
}

// InFlight reports whether a verification for the study is queued or
// running. Best effort only, concurrent attempts are last-writer-wins.
func (r *StatusRepository) InFlight(ctx context.Context, studyID int64) bool {
	status, err := r.Get(ctx, studyID)
	if err != nil {
		return false
	}
	return status.State == model.StateQueued || status.State == model.StateRunning
}

func statusKey(studyID int64) string {
	return fmt.Sprintf("%s%d", statusKeyPrefix, studyID)
}
