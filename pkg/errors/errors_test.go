package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("entity", "reg-001")
	if !stderrors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should report true")
	}
	if !strings.Contains(err.Error(), "reg-001") {
		t.Errorf("message %q should name the ID", err.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("threshold", 1.5, "must be between 0 and 1")
	if !stderrors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
	if !IsValidationError(err) {
		t.Error("IsValidationError should report true")
	}
}

func TestRuleError(t *testing.T) {
	err := NewRuleError("force-match", "FM-1", []string{"missing key1", "missing key2"})
	if !stderrors.Is(err, ErrInvalidRule) {
		t.Error("RuleError should match ErrInvalidRule")
	}
	if !IsRuleError(err) {
		t.Error("IsRuleError should report true")
	}
	msg := err.Error()
	if !strings.Contains(msg, "FM-1") || !strings.Contains(msg, "missing key1") {
		t.Errorf("message %q should name the rule and its problems", msg)
	}
}

func TestParseErrorUnwraps(t *testing.T) {
	cause := stderrors.New("unexpected token")
	err := WrapParse("csv", "rules.csv", cause)
	if !stderrors.Is(err, cause) {
		t.Error("ParseError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "rules.csv") {
		t.Errorf("message %q should name the file", err.Error())
	}
}

func TestIOErrorUnwraps(t *testing.T) {
	cause := stderrors.New("permission denied")
	err := WrapIO("open", "/etc/universe.yaml", cause)
	if !stderrors.Is(err, cause) {
		t.Error("IOError should unwrap to its cause")
	}
}

func TestWrapHelpersPassNil(t *testing.T) {
	if WrapIO("open", "x", nil) != nil {
		t.Error("WrapIO(nil) should be nil")
	}
	if WrapParse("csv", "x", nil) != nil {
		t.Error("WrapParse(nil) should be nil")
	}
	if WrapValidation("field", nil) != nil {
		t.Error("WrapValidation(nil) should be nil")
	}
}
