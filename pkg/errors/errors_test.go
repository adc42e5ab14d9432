package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestProcmineError_Format(t *testing.T) {
	err := New(CodeMissingColumn, "required column not found").
		WithContext("column", "case_id").
		WithContext("available", []string{"a", "b"})

	want := "[E104] required column not found (available=[a b], column=case_id)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap_UnwrapAndCode(t *testing.T) {
	cause := errors.New("disk gone")
	err := Wrap(cause, CodeWriteFailed, "write csv")

	if !errors.Is(err, cause) {
		t.Error("Wrapped error should unwrap to cause")
	}
	if !strings.HasSuffix(err.Error(), ": disk gone") {
		t.Errorf("Cause missing from message: %q", err.Error())
	}

	outer := fmt.Errorf("context: %w", err)
	if !IsCode(outer, CodeWriteFailed) {
		t.Error("IsCode should see through fmt wrapping")
	}
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Error("Plain errors should map to CodeUnknown")
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, CodeWriteFailed, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestProcmineError_IsByCode(t *testing.T) {
	err := ReportNotFound("abc")
	if !errors.Is(err, New(CodeReportNotFound, "")) {
		t.Error("Errors with the same code should match")
	}
	if errors.Is(err, New(CodeStoreQuery, "")) {
		t.Error("Errors with different codes should not match")
	}
}

func TestProcmineError_StackTrace(t *testing.T) {
	err := New(CodeUnknown, "boom")
	if len(err.StackTrace) == 0 {
		t.Fatal("Expected captured stack")
	}
	if !strings.Contains(err.FormatStack(), "TestProcmineError_StackTrace") {
		t.Errorf("Stack should include the test function:\n%s", err.FormatStack())
	}
}

func TestMultiError(t *testing.T) {
	var m MultiError
	if m.Combined() != nil {
		t.Error("Empty MultiError should combine to nil")
	}

	first := errors.New("first")
	m.Add(first)
	m.Add(nil)
	if m.Combined() != first {
		t.Error("Single error should be returned as-is")
	}

	m.Add(errors.New("second"))
	if !m.HasErrors() || !strings.Contains(m.Combined().Error(), "2 errors occurred") {
		t.Errorf("Unexpected combined error: %v", m.Combined())
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(CodeBackendFailed, "redis down")) {
		t.Error("Backend failures should be retryable")
	}
	if IsRetryable(New(CodeMissingColumn, "x")) {
		t.Error("Input errors should not be retryable")
	}
}
