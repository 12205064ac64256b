package controller_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"codehosp/internal/common/cache"
	"codehosp/internal/common/db"
	"codehosp/internal/common/storage"
	studycache "codehosp/internal/study/cache"
	"codehosp/internal/study/controller"
	"codehosp/internal/study/model"
	"codehosp/internal/study/repository"
	"codehosp/internal/study/service"
	"codehosp/internal/verify"
	"codehosp/internal/verify/comparator"
	verifymodel "codehosp/internal/verify/model"
	"codehosp/internal/verify/vetter"
	appErr "codehosp/pkg/errors"
)

type stubRow struct {
	vals []interface{}
	err  error
}

func (r stubRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.vals[i].(int64)
		case *string:
			*p = r.vals[i].(string)
		case *int:
			*p = r.vals[i].(int)
		case *sql.NullString:
			*p = r.vals[i].(sql.NullString)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		default:
			return fmt.Errorf("unsupported scan dest %T", d)
		}
	}
	return nil
}

type stubResult struct{}

func (stubResult) LastInsertId() (int64, error) { return 1, nil }
func (stubResult) RowsAffected() (int64, error) { return 1, nil }

type stubTx struct{ db *stubDB }

func (t *stubTx) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	return nil, fmt.Errorf("not implemented")
}

func (t *stubTx) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	return t.db.QueryRow(ctx, query, args...)
}

func (t *stubTx) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	return stubResult{}, nil
}

func (t *stubTx) Commit() error   { return nil }
func (t *stubTx) Rollback() error { return nil }

type stubDB struct {
	study *model.Study
}

func (f *stubDB) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *stubDB) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	if f.study == nil || !strings.Contains(query, "FROM studies") {
		return stubRow{err: sql.ErrNoRows}
	}
	s := f.study
	return stubRow{vals: []interface{}{
		s.ID, s.Title, s.AuthorID, s.Field, s.DataKey, s.CodeKey, s.ExpectedOutput,
		string(s.Status), s.Verifications,
		sql.NullString{}, sql.NullString{}, sql.NullString{}, sql.NullString{},
		s.CreatedAt, s.UpdatedAt,
	}}
}

func (f *stubDB) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	return stubResult{}, nil
}

func (f *stubDB) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	return fn(&stubTx{db: f})
}

func (f *stubDB) BeginTx(ctx context.Context, opts *db.TxOptions) (db.Transaction, error) {
	return &stubTx{db: f}, nil
}

func (f *stubDB) Ping(ctx context.Context) error { return nil }
func (f *stubDB) Close() error                   { return nil }
func (f *stubDB) Stats() db.Stats                { return db.Stats{} }

type stubStorage struct {
	objects map[string]string
}

type stubReader struct{ *strings.Reader }

func (stubReader) Close() error { return nil }

func (f *stubStorage) GetObject(ctx context.Context, bucket, objectKey string) (storage.ObjectReader, error) {
	content, ok := f.objects[objectKey]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectKey)
	}
	return stubReader{strings.NewReader(content)}, nil
}

func (f *stubStorage) PutObject(ctx context.Context, bucket, objectKey string, reader storage.ObjectReader, sizeBytes int64, contentType string) error {
	return fmt.Errorf("not implemented")
}

func (f *stubStorage) StatObject(ctx context.Context, bucket, objectKey string) (storage.ObjectStat, error) {
	return storage.ObjectStat{}, fmt.Errorf("not implemented")
}

func (f *stubStorage) ListObjects(ctx context.Context, bucket, prefix string) <-chan storage.ObjectInfo {
	ch := make(chan storage.ObjectInfo)
	close(ch)
	return ch
}

func (f *stubStorage) RemoveObjects(ctx context.Context, bucket string, keys []string) error {
	return nil
}

type stubExecutor struct{ stdout string }

func (f stubExecutor) Execute(ctx context.Context, code, datasetContent string) verifymodel.ExecutionOutcome {
	return verifymodel.ExecutionOutcome{Stdout: f.stdout}
}

type envelope struct {
	Code    appErr.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
}

func newRouter(t *testing.T) (*gin.Engine, *repository.StatusRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisCache, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("create redis cache failed: %v", err)
	}

	now := time.Now()
	database := &stubDB{study: &model.Study{
		ID:             7,
		Title:          "Statin adherence",
		AuthorID:       3,
		Field:          "cardiology",
		DataKey:        "studies/7/data.csv",
		CodeKey:        "studies/7/main.py",
		ExpectedOutput: "count: 12",
		Status:         verifymodel.StudyPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}}
	store := &stubStorage{objects: map[string]string{
		"studies/7/data.csv": "v\n1\n",
		"studies/7/main.py":  "print('count: 12')\n",
	}}
	artifacts, err := studycache.NewArtifactCache(studycache.Config{Bucket: "studies", TTL: time.Minute}, redisCache, store)
	if err != nil {
		t.Fatalf("create artifact cache failed: %v", err)
	}
	statusRepo := repository.NewStatusRepository(redisCache, time.Hour)

	verifier := verify.NewVerifier(
		vetter.New(),
		stubExecutor{stdout: "count: 12"},
		comparator.New(comparator.NewTokenOverlap(), comparator.LocalThresholds()),
		verify.DefaultConfig(),
	)

	svc, err := service.NewService(service.Config{
		Verifier:   verifier,
		DB:         database,
		StudyRepo:  repository.NewStudyRepository(database, nil, 0),
		UserRepo:   repository.NewUserRepository(database),
		StatusRepo: statusRepo,
		Artifacts:  artifacts,
	})
	if err != nil {
		t.Fatalf("create service failed: %v", err)
	}

	router := gin.New()
	h := controller.NewVerifyController(svc)
	router.GET("/api/v1/studies/:id/verification", h.GetVerification)
	router.POST("/api/v1/verify", func(c *gin.Context) {
		c.Set("user_id", int64(3))
		h.VerifyInline(c)
	})
	return router, statusRepo
}

func TestGetVerificationReturnsStatus(t *testing.T) {
	t.Parallel()
	router, statusRepo := newRouter(t)

	err := statusRepo.Save(context.Background(), model.VerificationStatus{
		StudyID:     7,
		State:       model.StateFinished,
		StudyStatus: verifymodel.StudyVerified,
		ReceivedAt:  time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("seed status failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/studies/7/verification", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected http status: %d (%s)", w.Code, w.Body.String())
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	var status model.VerificationStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatalf("decode status failed: %v", err)
	}
	if status.State != model.StateFinished || status.StudyStatus != verifymodel.StudyVerified {
		t.Fatalf("unexpected status payload: %+v", status)
	}
}

func TestGetVerificationUnknownStudy(t *testing.T) {
	t.Parallel()
	router, _ := newRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/studies/99/verification", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("unexpected http status: %d (%s)", w.Code, w.Body.String())
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp.Code != appErr.VerificationNotFound {
		t.Fatalf("unexpected error code: %d", resp.Code)
	}
}

func TestGetVerificationInvalidID(t *testing.T) {
	t.Parallel()
	router, _ := newRouter(t)

	for _, raw := range []string{"abc", "0", "-3"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/studies/"+raw+"/verification", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("id %q: unexpected http status %d", raw, w.Code)
		}
	}
}

func TestVerifyInlineEndpoint(t *testing.T) {
	t.Parallel()
	router, _ := newRouter(t)

	body, _ := json.Marshal(map[string]string{
		"source_code":     "print('count: 12')",
		"dataset_content": "v\n1\n",
		"expected_output": "count: 12",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected http status: %d (%s)", w.Code, w.Body.String())
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	var result verifymodel.VerificationResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode result failed: %v", err)
	}
	if result.Status != verifymodel.StatusMatch {
		t.Fatalf("unexpected result status: %s", result.Status)
	}
}

func TestVerifyInlineRejectsIncompleteBody(t *testing.T) {
	t.Parallel()
	router, _ := newRouter(t)

	body, _ := json.Marshal(map[string]string{"source_code": "print(1)"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected http status: %d (%s)", w.Code, w.Body.String())
	}
}
