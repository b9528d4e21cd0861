// Package repository defines the persistence boundary the scheduling core
// depends on: three logical tables (tasks, occurrences, executions) keyed
// by record id, with upsert semantics and cascade delete. The core never
// imports a concrete storage engine, only this interface.
package repository

import (
	"context"

	"github.com/adil-adysh/plan-flow/internal/domain"
)

// Repository is the persistence boundary consumed by the orchestrator and
// the Controller. Add* calls are upserts: an existing id is overwritten,
// never duplicated.
type Repository interface {
	AddTask(ctx context.Context, task domain.TaskDefinition) error
	GetTask(ctx context.Context, id string) (*domain.TaskDefinition, error)
	ListTasks(ctx context.Context) ([]domain.TaskDefinition, error)

	AddOccurrence(ctx context.Context, occ domain.TaskOccurrence) error
	ListOccurrences(ctx context.Context) ([]domain.TaskOccurrence, error)

	AddExecution(ctx context.Context, exec domain.TaskExecution) error
	ListExecutions(ctx context.Context) ([]domain.TaskExecution, error)

	// DeleteTaskAndRelated cascades: it removes the task, every occurrence
	// referencing it, and every execution referencing one of those
	// occurrences.
	DeleteTaskAndRelated(ctx context.Context, taskID string) error
}
