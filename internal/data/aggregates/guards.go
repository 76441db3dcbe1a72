package aggregates

import (
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	evdb "github.com/yungbote/earnedvalue-backend/internal/data/db"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

// ProjectGuard serializes budget-version writes per project.
type ProjectGuard struct {
	db *gorm.DB
}

func NewProjectGuard(db *gorm.DB) ProjectGuard {
	return ProjectGuard{db: db}
}

func (g ProjectGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// LockProject takes a transaction-scoped advisory lock on the project. It is
// released at commit or rollback. On SQLite the whole database is already
// serialized by its single writer, so nothing is taken.
func (g ProjectGuard) LockProject(dbc dbctx.Context, projectID uuid.UUID) error {
	if projectID == uuid.Nil {
		return ValidationError("project_id is required")
	}
	db, err := g.baseDB(dbc)
	if err != nil {
		return err
	}
	if !evdb.IsPostgres(db) {
		return nil
	}
	return db.Exec("SELECT pg_advisory_xact_lock(?)", ProjectLockKey(projectID)).Error
}

// LockCategory serializes template version assignment for one category.
func (g ProjectGuard) LockCategory(dbc dbctx.Context, category string) error {
	if category == "" {
		return ValidationError("category is required")
	}
	db, err := g.baseDB(dbc)
	if err != nil {
		return err
	}
	if !evdb.IsPostgres(db) {
		return nil
	}
	return db.Exec("SELECT pg_advisory_xact_lock(?)", CategoryLockKey(category)).Error
}

// CategoryLockKey derives the advisory lock key for a template category.
func CategoryLockKey(category string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("milestone_template:"))
	_, _ = h.Write([]byte(category))
	return int64(h.Sum64())
}

// ProjectLockKey derives the advisory lock key for a project's budget history.
func ProjectLockKey(projectID uuid.UUID) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("manhour_budget:"))
	_, _ = h.Write(projectID[:])
	return int64(h.Sum64())
}

// RequireSingleActive converts an unexpected active-row count into an invariant error.
func RequireSingleActive(projectID uuid.UUID, active int64) error {
	if active == 1 {
		return nil
	}
	return InvariantError(fmt.Sprintf("project %s has %d active budgets after activation", projectID, active))
}

// RequireSameProject guards against allocation rows pointing across projects.
func RequireSameProject(what string, want, got uuid.UUID) error {
	if want == got {
		return nil
	}
	return InvariantError(fmt.Sprintf("%s belongs to project %s, expected %s", what, got, want))
}
