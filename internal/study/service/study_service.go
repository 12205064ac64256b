package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"codehosp/internal/common/db"
	"codehosp/internal/common/mq"
	studycache "codehosp/internal/study/cache"
	"codehosp/internal/study/model"
	"codehosp/internal/study/repository"
	"codehosp/internal/verify"
	verifymodel "codehosp/internal/verify/model"
	appErr "codehosp/pkg/errors"
	"codehosp/pkg/utils/logger"
)

// Service coordinates queued and inline study verifications.
type Service struct {
	verifier   *verify.Verifier
	db         db.Database
	studyRepo  *repository.StudyRepository
	userRepo   *repository.UserRepository
	statusRepo *repository.StatusRepository
	artifacts  *studycache.ArtifactCache
	producer   mq.Producer

	taskTopic   string
	resultTopic string

	statusTimeout time.Duration
	sem           chan struct{}
}

// Config holds service dependencies and settings.
type Config struct {
	Verifier   *verify.Verifier
	DB         db.Database
	StudyRepo  *repository.StudyRepository
	UserRepo   *repository.UserRepository
	StatusRepo *repository.StatusRepository
	Artifacts  *studycache.ArtifactCache
	Producer   mq.Producer

	TaskTopic   string
	ResultTopic string

	StatusTimeout  time.Duration
	WorkerPoolSize int
}

// NewService creates a new verification service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	if cfg.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if cfg.StudyRepo == nil {
		return nil, fmt.Errorf("study repository is required")
	}
	if cfg.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if cfg.StatusRepo == nil {
		return nil, fmt.Errorf("status repository is required")
	}
	if cfg.Artifacts == nil {
		return nil, fmt.Errorf("artifact cache is required")
	}
	poolSize := cfg.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Service{
		verifier:      cfg.Verifier,
		db:            cfg.DB,
		studyRepo:     cfg.StudyRepo,
		userRepo:      cfg.UserRepo,
		statusRepo:    cfg.StatusRepo,
		artifacts:     cfg.Artifacts,
		producer:      cfg.Producer,
		taskTopic:     cfg.TaskTopic,
		resultTopic:   cfg.ResultTopic,
		statusTimeout: cfg.StatusTimeout,
		sem:           make(chan struct{}, poolSize),
	}, nil
}

// Enqueue validates the study and publishes a verification task.
func (s *Service) Enqueue(ctx context.Context, studyID, userID int64) error {
	study, err := s.studyRepo.GetByID(ctx, studyID)
	if err != nil {
		return err
	}
	if study.DataKey == "" {
		return appErr.New(appErr.DatasetMissing)
	}
	if study.CodeKey == "" {
		return appErr.New(appErr.ScriptMissing)
	}
	if s.statusRepo.InFlight(ctx, studyID) {
		return appErr.New(appErr.VerificationInProgress)
	}
	if s.producer == nil || s.taskTopic == "" {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("task queue is not configured")
	}

	if err := s.saveStatus(ctx, model.VerificationStatus{
		StudyID:    studyID,
		State:      model.StateQueued,
		ReceivedAt: time.Now().Unix(),
	}); err != nil {
		return err
	}

	payload, err := json.Marshal(model.VerifyMessage{StudyID: studyID, UserID: userID})
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "encode task failed")
	}
	msg := mq.NewMessage(payload)
	msg.ID = strconv.FormatInt(studyID, 10)
	if err := s.producer.Publish(ctx, s.taskTopic, msg); err != nil {
		// A stale Queued record would block re-enqueue until its TTL.
		if delErr := s.statusRepo.Delete(ctx, studyID); delErr != nil {
			logger.Warnf(ctx, "clear queued status for study %d failed: %v", studyID, delErr)
		}
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "publish task failed")
	}
	return nil
}

// RunVerification executes the full pipeline for one study: fetch
// artifacts, verify, persist the outcome and award points. It returns
// the terminal status record.
func (s *Service) RunVerification(ctx context.Context, studyID, userID int64) (model.VerificationStatus, error) {
	receivedAt := time.Now().Unix()

	if err := s.acquireSlot(ctx); err != nil {
		return model.VerificationStatus{}, err
	}
	defer s.releaseSlot()

	running := model.VerificationStatus{
		StudyID:    studyID,
		State:      model.StateRunning,
		ReceivedAt: receivedAt,
	}
	if err := s.saveStatus(ctx, running); err != nil {
		return model.VerificationStatus{}, err
	}

	study, err := s.studyRepo.GetByID(ctx, studyID)
	if err != nil {
		return s.handleFailure(ctx, running, err)
	}

	code, err := s.artifacts.Fetch(ctx, study.CodeKey)
	if err != nil {
		return s.handleFailure(ctx, running, err)
	}
	data, err := s.artifacts.Fetch(ctx, study.DataKey)
	if err != nil {
		return s.handleFailure(ctx, running, err)
	}

	result := s.verifier.Verify(ctx, verifymodel.SubmissionRequest{
		SourceCode:     code,
		DatasetContent: data,
		ExpectedOutput: study.ExpectedOutput,
	})
	studyStatus := verifymodel.StudyStatusFor(result.Status)

	authorID := study.AuthorID
	if userID > 0 {
		authorID = userID
	}
	points := verifymodel.PointsFor(result.Status)
	err = s.db.Transaction(ctx, func(tx db.Transaction) error {
		if err := s.studyRepo.SaveVerification(ctx, tx, studyID, result); err != nil {
			return err
		}
		if points > 0 {
			return s.userRepo.AwardPoints(ctx, tx, authorID, points)
		}
		return nil
	})
	if err != nil {
		return s.handleFailure(ctx, running, err)
	}

	finished := model.VerificationStatus{
		StudyID:     studyID,
		State:       model.StateFinished,
		StudyStatus: studyStatus,
		Result:      &result,
		ReceivedAt:  receivedAt,
		FinishedAt:  time.Now().Unix(),
	}
	if err := s.saveStatus(ctx, finished); err != nil {
		return model.VerificationStatus{}, err
	}

	s.publishResult(ctx, finished)
	logger.Infof(ctx, "study %d verified: %s (%s)", studyID, result.Status, studyStatus)
	return finished, nil
}

// VerifyInline runs the pipeline on caller-supplied content without
// touching any study record.
func (s *Service) VerifyInline(ctx context.Context, req verifymodel.SubmissionRequest) (verifymodel.VerificationResult, error) {
	if err := s.acquireSlot(ctx); err != nil {
		return verifymodel.VerificationResult{}, err
	}
	defer s.releaseSlot()
	return s.verifier.Verify(ctx, req), nil
}

// Status returns live progress for one study.
func (s *Service) Status(ctx context.Context, studyID int64) (model.VerificationStatus, error) {
	return s.statusRepo.Get(ctx, studyID)
}

func (s *Service) acquireSlot(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
		return appErr.New(appErr.VerifyQueueFull)
	}
}

func (s *Service) releaseSlot() {
	select {
	case <-s.sem:
	default:
	}
}

func (s *Service) saveStatus(ctx context.Context, status model.VerificationStatus) error {
	ctxStatus := ctx
	if s.statusTimeout > 0 {
		var cancel context.CancelFunc
		ctxStatus, cancel = context.WithTimeout(ctx, s.statusTimeout)
		defer cancel()
	}
	return s.statusRepo.Save(ctxStatus, status)
}

func (s *Service) handleFailure(ctx context.Context, running model.VerificationStatus, cause error) (model.VerificationStatus, error) {
	failed := model.VerificationStatus{
		StudyID:     running.StudyID,
		State:       model.StateFailed,
		StudyStatus: verifymodel.StudyIssues,
		Error:       cause.Error(),
		ReceivedAt:  running.ReceivedAt,
		FinishedAt:  time.Now().Unix(),
	}
	if saveErr := s.saveStatus(ctx, failed); saveErr != nil {
		logger.Errorf(ctx, "save failed status for study %d: %v", running.StudyID, saveErr)
	}
	logger.Errorf(ctx, "verification of study %d failed: %v", running.StudyID, cause)
	return failed, cause
}

func (s *Service) publishResult(ctx context.Context, finished model.VerificationStatus) {
	if s.producer == nil || s.resultTopic == "" {
		return
	}
	payload, err := json.Marshal(finished)
	if err != nil {
		logger.Errorf(ctx, "encode result event for study %d: %v", finished.StudyID, err)
		return
	}
	msg := mq.NewMessage(payload)
	msg.ID = strconv.FormatInt(finished.StudyID, 10)
	if err := s.producer.Publish(ctx, s.resultTopic, msg); err != nil {
		logger.Warnf(ctx, "publish result event for study %d: %v", finished.StudyID, err)
	}
}
