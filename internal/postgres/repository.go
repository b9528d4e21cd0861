// Package postgres implements internal/repository.Repository against a
// real database: three tables (tasks, occurrences, executions), each an id
// plus a jsonb payload column, matching the JSON-mapping contract the core
// expects from any storage engine.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adil-adysh/plan-flow/internal/domain"
	"github.com/adil-adysh/plan-flow/internal/repository"
)

// Repository is a Postgres-backed repository.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

var _ repository.Repository = (*Repository)(nil)

// NewPool creates a pgxpool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// New wraps pool with the Repository interface.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) AddTask(ctx context.Context, task domain.TaskDefinition) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO tasks (id, payload) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET payload = excluded.payload
	`, task.ID, payload)
	if err != nil {
		return fmt.Errorf("upsert task %s: %w", task.ID, err)
	}
	return nil
}

func (r *Repository) GetTask(ctx context.Context, id string) (*domain.TaskDefinition, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM tasks WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	var task domain.TaskDefinition
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return &task, nil
}

func (r *Repository) ListTasks(ctx context.Context) ([]domain.TaskDefinition, error) {
	rows, err := r.pool.Query(ctx, `SELECT payload FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.TaskDefinition
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		var task domain.TaskDefinition
		if err := json.Unmarshal(payload, &task); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *Repository) AddOccurrence(ctx context.Context, occ domain.TaskOccurrence) error {
	payload, err := json.Marshal(occ)
	if err != nil {
		return fmt.Errorf("marshal occurrence %s: %w", occ.ID, err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO occurrences (id, task_id, payload) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET task_id = excluded.task_id, payload = excluded.payload
	`, occ.ID, occ.TaskID, payload)
	if err != nil {
		return fmt.Errorf("upsert occurrence %s: %w", occ.ID, err)
	}
	return nil
}

func (r *Repository) ListOccurrences(ctx context.Context) ([]domain.TaskOccurrence, error) {
	rows, err := r.pool.Query(ctx, `SELECT payload FROM occurrences`)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	defer rows.Close()

	var out []domain.TaskOccurrence
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan occurrence row: %w", err)
		}
		var occ domain.TaskOccurrence
		if err := json.Unmarshal(payload, &occ); err != nil {
			return nil, fmt.Errorf("unmarshal occurrence: %w", err)
		}
		out = append(out, occ)
	}
	return out, rows.Err()
}

func (r *Repository) AddExecution(ctx context.Context, exec domain.TaskExecution) error {
	payload, err := json.Marshal(exec)
	if err != nil {
		return fmt.Errorf("marshal execution for occurrence %s: %w", exec.OccurrenceID, err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO executions (occurrence_id, payload) VALUES ($1, $2)
		ON CONFLICT (occurrence_id) DO UPDATE SET payload = excluded.payload
	`, exec.OccurrenceID, payload)
	if err != nil {
		return fmt.Errorf("upsert execution for occurrence %s: %w", exec.OccurrenceID, err)
	}
	return nil
}

func (r *Repository) ListExecutions(ctx context.Context) ([]domain.TaskExecution, error) {
	rows, err := r.pool.Query(ctx, `SELECT payload FROM executions`)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var out []domain.TaskExecution
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}
		var exec domain.TaskExecution
		if err := json.Unmarshal(payload, &exec); err != nil {
			return nil, fmt.Errorf("unmarshal execution: %w", err)
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteTaskAndRelated(ctx context.Context, taskID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete-cascade tx for task %s: %w", taskID, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM executions WHERE occurrence_id IN (SELECT id FROM occurrences WHERE task_id = $1)
	`, taskID); err != nil {
		return fmt.Errorf("delete executions for task %s: %w", taskID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM occurrences WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("delete occurrences for task %s: %w", taskID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID); err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return tx.Commit(ctx)
}
