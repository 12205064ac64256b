package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"codehosp/internal/common/cache"
	"codehosp/internal/common/db"
	"codehosp/internal/study/model"
	verifymodel "codehosp/internal/verify/model"
	appErr "codehosp/pkg/errors"
)

const (
	studyCacheKeyPrefix = "study:record:"
	studyCacheEmptyTTL  = 1 * time.Minute
)

// StudyRepository persists study records in MySQL with an optional
// read-through cache.
type StudyRepository struct {
	db       db.Database
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewStudyRepository creates a new repository. cacheClient may be nil
// to disable caching.
func NewStudyRepository(database db.Database, cacheClient cache.Cache, cacheTTL time.Duration) *StudyRepository {
	return &StudyRepository{db: database, cache: cacheClient, cacheTTL: cacheTTL}
}

// Create inserts a new study and returns its id.
func (r *StudyRepository) Create(ctx context.Context, study *model.Study) (int64, error) {
	if study == nil {
		return 0, appErr.ValidationError("study", "required")
	}
	if study.Title == "" {
		return 0, appErr.ValidationError("title", "required")
	}
	status := study.Status
	if status == "" {
		status = verifymodel.StudyPending
	}
	res, err := r.db.Exec(ctx,
		`INSERT INTO studies (title, author_id, field, data_key, code_key, expected_output, status, verifications, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, NOW(), NOW())`,
		study.Title, study.AuthorID, study.Field, study.DataKey, study.CodeKey, study.ExpectedOutput, string(status))
	if err != nil {
		if key, ok := db.UniqueViolation(err); ok {
			return 0, appErr.New(appErr.StudyCreateFailed).WithMessage(fmt.Sprintf("duplicate value for %s", key))
		}
		return 0, appErr.Wrapf(err, appErr.DatabaseError, "insert study failed")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, appErr.Wrapf(err, appErr.DatabaseError, "read insert id failed")
	}
	return id, nil
}

// GetByID loads one study, going through the cache when configured.
func (r *StudyRepository) GetByID(ctx context.Context, id int64) (*model.Study, error) {
	if id <= 0 {
		return nil, appErr.ValidationError("study_id", "required")
	}
	if r.cache == nil {
		return r.fetchByID(ctx, id)
	}

	study, err := cache.GetWithCached(ctx, r.cache,
		fmt.Sprintf("%s%d", studyCacheKeyPrefix, id),
		cache.JitterTTL(r.cacheTTL), studyCacheEmptyTTL,
		func(s *model.Study) bool { return s == nil },
		func(s *model.Study) string {
			data, _ := json.Marshal(s)
			return string(data)
		},
		func(data string) (*model.Study, error) {
			var s model.Study
			if err := json.Unmarshal([]byte(data), &s); err != nil {
				return nil, err
			}
			return &s, nil
		},
		func(ctx context.Context) (*model.Study, error) {
			s, err := r.fetchByID(ctx, id)
			if appErr.GetCode(err) == appErr.StudyNotFound {
				return nil, nil
			}
			return s, err
		})
	if err != nil {
		return nil, err
	}
	if study == nil {
		return nil, appErr.New(appErr.StudyNotFound)
	}
	return study, nil
}

// SaveVerification stores the latest verification outcome and bumps
// the attempt counter. Last writer wins for concurrent attempts on the
// same study. A non-nil tx joins an enclosing transaction.
func (r *StudyRepository) SaveVerification(ctx context.Context, tx db.Transaction, studyID int64, result verifymodel.VerificationResult) error {
	if studyID <= 0 {
		return appErr.ValidationError("study_id", "required")
	}
	q := db.GetQuerier(r.db, tx)
	status := verifymodel.StudyStatusFor(result.Status)
	res, err := q.Exec(ctx,
		`UPDATE studies
		 SET status = ?, result_status = ?, result_output = ?, result_expected = ?, result_details = ?,
		     verifications = verifications + 1, updated_at = NOW()
		 WHERE id = ?`,
		string(status), string(result.Status), result.Output, result.ExpectedOutput, result.Details, studyID)
	if err != nil {
		return appErr.Wrapf(err, appErr.StudyUpdateFailed, "save verification failed")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "read rows affected failed")
	}
	if affected == 0 {
		return appErr.New(appErr.StudyNotFound)
	}
	if r.cache != nil {
		_ = r.cache.Del(ctx, fmt.Sprintf("%s%d", studyCacheKeyPrefix, studyID))
	}
	return nil
}

func (r *StudyRepository) fetchByID(ctx context.Context, id int64) (*model.Study, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, title, author_id, field, data_key, code_key, expected_output, status, verifications,
		        result_status, result_output, result_expected, result_details, created_at, updated_at
		 FROM studies WHERE id = ?`, id)

	var (
		s             model.Study
		status        string
		resultStatus  sql.NullString
		resultOutput  sql.NullString
		resultExpect  sql.NullString
		resultDetails sql.NullString
	)
	err := row.Scan(&s.ID, &s.Title, &s.AuthorID, &s.Field, &s.DataKey, &s.CodeKey, &s.ExpectedOutput,
		&status, &s.Verifications, &resultStatus, &resultOutput, &resultExpect, &resultDetails,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.StudyNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "query study failed")
	}
	s.Status = verifymodel.StudyStatus(status)
	if resultStatus.Valid && resultStatus.String != "" {
		s.Result = &verifymodel.VerificationResult{
			Status:         verifymodel.Status(resultStatus.String),
			Output:         resultOutput.String,
			ExpectedOutput: resultExpect.String,
			Details:        resultDetails.String,
		}
	}
	return &s, nil
}
