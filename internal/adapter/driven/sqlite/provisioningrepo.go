package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ProvisioningLog = (*ProvisioningRepo)(nil)

// ProvisioningRepo is the SQLite implementation of the ProvisioningLog port.
type ProvisioningRepo struct {
	db *DB
}

// NewProvisioningRepo creates a new ProvisioningRepo backed by the given DB.
func NewProvisioningRepo(db *DB) *ProvisioningRepo {
	return &ProvisioningRepo{db: db}
}

// Record inserts a run. Runs are append-only.
func (r *ProvisioningRepo) Record(ctx context.Context, run model.ProvisioningRun) error {
	const query = `
		INSERT INTO provisioning_runs (id, account_id, repo_full_name, project_type, runner_name, state, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		run.ID, run.AccountID, run.RepoFullName, string(run.ProjectType),
		run.RunnerName, string(run.State), run.Error, formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("record provisioning run %s: %w", run.ID, err)
	}
	return nil
}

// ListByAccount returns the account's runs, newest first.
func (r *ProvisioningRepo) ListByAccount(ctx context.Context, accountID string) ([]model.ProvisioningRun, error) {
	const query = `
		SELECT id, account_id, repo_full_name, project_type, runner_name, state, error, created_at
		FROM provisioning_runs
		WHERE account_id = ?
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list provisioning runs for %s: %w", accountID, err)
	}
	defer rows.Close()

	runs := []model.ProvisioningRun{}
	for rows.Next() {
		var run model.ProvisioningRun
		var projectType, state, createdAt string
		if err := rows.Scan(&run.ID, &run.AccountID, &run.RepoFullName, &projectType,
			&run.RunnerName, &state, &run.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scan provisioning run: %w", err)
		}
		run.ProjectType = model.ProjectType(projectType)
		run.State = model.PipelineState(state)
		run.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provisioning runs: %w", err)
	}

	return runs, nil
}
