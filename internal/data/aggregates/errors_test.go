package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/modules/earnedvalue"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domainagg.ErrorCode
	}{
		{"validation", ValidationError("bad input"), domainagg.CodeValidation},
		{"conflict", ConflictError("stale"), domainagg.CodeConflict},
		{"invariant", InvariantError("two active"), domainagg.CodeInvariantViolation},
		{"not found", gorm.ErrRecordNotFound, domainagg.CodeNotFound},
		{"canceled", context.Canceled, domainagg.CodeRetryable},
		{"zero weight", fmt.Errorf("distribute: %w", earnedvalue.ErrZeroWeight), domainagg.CodeValidation},
		{"bad total", earnedvalue.ErrInvalidBudgetTotal, domainagg.CodeValidation},
		{"weight sum", &earnedvalue.WeightSumError{Sum: decimal.NewFromInt(99)}, domainagg.CodeValidation},
		{"milestone", &earnedvalue.MilestoneError{Name: "x", Reason: "dup"}, domainagg.CodeValidation},
		{"pg unique", &pgconn.PgError{Code: "23505"}, domainagg.CodeConflict},
		{"pg fk", &pgconn.PgError{Code: "23503"}, domainagg.CodePreconditionFailed},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, domainagg.CodeRetryable},
		{"sqlite unique", errors.New("UNIQUE constraint failed: manhour_budget.project_id"), domainagg.CodeConflict},
		{"sqlite busy", errors.New("database is locked"), domainagg.CodeRetryable},
		{"other", errors.New("boom"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError("op", tc.err)
			if !domainagg.IsCode(got, tc.want) {
				t.Fatalf("code: want=%s got=%q (%v)", tc.want, domainagg.CodeOf(got), got)
			}
		})
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
	if MapError("op", nil) != nil {
		t.Fatalf("nil should map to nil")
	}
}
