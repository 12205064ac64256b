package errors_test

import (
	"errors"
	"testing"

	. "codehosp/pkg/errors"
)

func TestErrorCode_Message(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{Success, "Success"},
		{StudyNotFound, "Study not found"},
		{InvalidParams, "Invalid parameters"},
		{DatabaseError, "Database operation failed"},
		{SecurityViolation, "Code failed security vetting"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.code.Message(); got != tt.want {
				t.Errorf("Message() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidParams, 400},
		{SecurityViolation, 400},
		{TokenExpired, 401},
		{Forbidden, 403},
		{StudyNotFound, 404},
		{VerificationNotFound, 404},
		{VerificationInProgress, 409},
		{VerifyQueueFull, 429},
		{InternalServerError, 500},
		{SandboxUnavailable, 503},
	}

	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestNew(t *testing.T) {
	err := New(StudyNotFound)

	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	if err.Code != StudyNotFound {
		t.Errorf("Code = %v, want %v", err.Code, StudyNotFound)
	}

	if err.Error() != StudyNotFound.Message() {
		t.Errorf("Error() = %v, want %v", err.Error(), StudyNotFound.Message())
	}
}

func TestNewf(t *testing.T) {
	studyID := int64(123)
	err := Newf(StudyNotFound, "study %d not found", studyID)

	want := "study 123 not found"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrap(originalErr, SandboxUnavailable)

	if wrappedErr.Code != SandboxUnavailable {
		t.Errorf("Code = %v, want %v", wrappedErr.Code, SandboxUnavailable)
	}

	if wrappedErr.Unwrap() != originalErr {
		t.Error("Unwrap() should return original error")
	}
}

func TestError_WithDetail(t *testing.T) {
	err := New(ValidationFailed).
		WithDetail("field", "expected_output").
		WithDetail("reason", "must not be empty")

	if err.Details["field"] != "expected_output" {
		t.Error("Field detail not set correctly")
	}

	if err.Details["reason"] != "must not be empty" {
		t.Error("Reason detail not set correctly")
	}
}

func TestError_WithMessage(t *testing.T) {
	customMsg := "Code contains prohibited operation: os.system"
	err := New(SecurityViolation).WithMessage(customMsg)

	if err.Error() != customMsg {
		t.Errorf("Error() = %v, want %v", err.Error(), customMsg)
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "nil error",
			err:  nil,
			want: Success,
		},
		{
			name: "custom error",
			err:  New(StudyNotFound),
			want: StudyNotFound,
		},
		{
			name: "standard error",
			err:  errors.New("standard error"),
			want: InternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := New(StudyNotFound)

	if !Is(err, StudyNotFound) {
		t.Error("Is() should return true for matching code")
	}

	if Is(err, DatabaseError) {
		t.Error("Is() should return false for non-matching code")
	}

	if Is(nil, StudyNotFound) {
		t.Error("Is() should return false for nil error")
	}
}

func TestCommonErrorConstructors(t *testing.T) {
	t.Run("BadRequest", func(t *testing.T) {
		err := BadRequest("invalid input")
		if err.Code != InvalidParams {
			t.Error("BadRequest should use InvalidParams code")
		}
	})

	t.Run("NotFoundError", func(t *testing.T) {
		err := NotFoundError("study")
		if err.Code != NotFound {
			t.Error("NotFoundError should use NotFound code")
		}
	})

	t.Run("UnauthorizedError", func(t *testing.T) {
		err := UnauthorizedError("token expired")
		if err.Code != Unauthorized {
			t.Error("UnauthorizedError should use Unauthorized code")
		}
	})

	t.Run("ForbiddenError", func(t *testing.T) {
		err := ForbiddenError("")
		if err.Code != Forbidden {
			t.Error("ForbiddenError should use Forbidden code")
		}
	})

	t.Run("InternalError", func(t *testing.T) {
		originalErr := errors.New("db error")
		err := InternalError(originalErr)
		if err.Code != InternalServerError {
			t.Error("InternalError should use InternalServerError code")
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError("expected_output", "must not be empty")
		if err.Code != ValidationFailed {
			t.Error("ValidationError should use ValidationFailed code")
		}
		if err.Details["field"] != "expected_output" {
			t.Error("Field detail not set")
		}
	})
}
