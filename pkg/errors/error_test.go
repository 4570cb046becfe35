package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{Unauthorized, http.StatusUnauthorized},
		{TokenExpired, http.StatusUnauthorized},
		{TokenInvalid, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{ContestNotActive, http.StatusForbidden},
		{UserNotRegistered, http.StatusForbidden},
		{SubmissionLimitHit, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{ProblemNotFound, http.StatusNotFound},
		{InvalidParams, http.StatusBadRequest},
		{LanguageNotSupported, http.StatusBadRequest},
		{TestcasesNotFound, http.StatusBadRequest},
		{CheckBatchInvalid, http.StatusBadRequest},
		{ServiceUnavailable, http.StatusServiceUnavailable},
		{EngineUnavailable, http.StatusServiceUnavailable},
		{Timeout, http.StatusGatewayTimeout},
		{ResponseTimeout, http.StatusGatewayTimeout},
		{InternalServerError, http.StatusInternalServerError},
		{JudgeSystemError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%d) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, JudgeSystemError)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause lost")
	}
	if GetCode(err) != JudgeSystemError {
		t.Errorf("code = %d", GetCode(err))
	}
}

func TestGetCodeOnForeignError(t *testing.T) {
	if GetCode(errors.New("plain")) != InternalServerError {
		t.Error("foreign errors must map to InternalServerError")
	}
	if GetCode(nil) != Success {
		t.Error("nil must map to Success")
	}
}

func TestExitCodeDetail(t *testing.T) {
	err := New(RuntimeError).WithDetail("exit_code", 139)
	if err.ExitCode() != 139 {
		t.Errorf("exit code = %d", err.ExitCode())
	}
	if New(RuntimeError).ExitCode() != -1 {
		t.Error("missing detail should be -1")
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := Newf(TimeLimitExceeded, "took too long")
	if !Is(err, TimeLimitExceeded) {
		t.Error("Is should match the code")
	}
	if Is(err, MemoryLimitExceeded) {
		t.Error("Is must not match other codes")
	}
}

func TestErrorMessageFallback(t *testing.T) {
	if New(CompilationError).Error() != CompilationError.Message() {
		t.Error("empty message should fall back to the code message")
	}
	if Newf(CompilationError, "line 3").Error() != "line 3" {
		t.Error("explicit message should win")
	}
}
