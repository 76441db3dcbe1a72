package cli

import (
	"errors"
	"fmt"

	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
)

// CLIError wraps an error with a user-facing message and an optional hint.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error { return e.Err }

func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{Message: msg, Hint: hint, Err: err, ExitCode: 1}
}

// MapError attaches hints to the aggregate error codes an operator can act on.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var ce *CLIError
	if errors.As(err, &ce) {
		return ce
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeValidation:
		ce := &CLIError{Message: "invalid input", Err: err, ExitCode: 2}
		if _, ok := domainagg.DetailsOf(err)["unknown_milestones"]; ok {
			ce.Hint = "`evctl templates show <category>` lists the milestone names"
		}
		return ce
	case domainagg.CodeNotFound:
		return NewCLIError("not found", "check the id; `evctl budget list <project>` shows budget versions", err)
	case domainagg.CodePreconditionFailed:
		return NewCLIError("precondition failed", "create a budget first with `evctl budget create`", err)
	case domainagg.CodeConflict, domainagg.CodeRetryable:
		return NewCLIError("concurrent update", "retry the command", err)
	case domainagg.CodeInvariantViolation:
		return NewCLIError("data invariant violated", "inspect the project's budget versions before retrying", err)
	}
	return err
}
