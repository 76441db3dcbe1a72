package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestDetailAttachesToWrappedError(t *testing.T) {
	base := NewError(CodeNotFound, "Manhours.Budget.OverrideAllocation", "no allocation", nil)
	wrapped := fmt.Errorf("override: %w", base)

	if got := Detail(wrapped, "component_id", "c-1", "budget_version", 3, 42, "ignored"); got != wrapped {
		t.Fatalf("Detail must return its argument")
	}
	d := DetailsOf(wrapped)
	if d["component_id"] != "c-1" || d["budget_version"] != 3 || len(d) != 2 {
		t.Fatalf("details: unexpected %v", d)
	}
	if !IsCode(wrapped, CodeNotFound) {
		t.Fatalf("code lost through wrapping")
	}
}

func TestDetailIgnoresPlainErrors(t *testing.T) {
	plain := errors.New("boom")
	if Detail(plain, "k", "v") != plain || DetailsOf(plain) != nil {
		t.Fatalf("plain errors carry no details")
	}
}

func TestTemporary(t *testing.T) {
	cases := map[ErrorCode]bool{
		CodeRetryable:          true,
		CodeConflict:           true,
		CodeValidation:         false,
		CodeInvariantViolation: false,
	}
	for code, want := range cases {
		if got := Temporary(NewError(code, "op", "msg", nil)); got != want {
			t.Fatalf("Temporary(%s): want=%v got=%v", code, want, got)
		}
	}
}
