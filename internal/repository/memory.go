package repository

import (
	"context"
	"sync"

	"github.com/adil-adysh/plan-flow/internal/domain"
)

// Memory is an in-process Repository backed by maps guarded by a mutex. It
// satisfies the same upsert/cascade-delete contract as the Postgres-backed
// implementation and is useful standalone (tests, a single-user desktop
// deployment with no database) or as the target the cache layer wraps.
type Memory struct {
	mu          sync.Mutex
	tasks       map[string]domain.TaskDefinition
	occurrences map[string]domain.TaskOccurrence
	executions  map[string]domain.TaskExecution // keyed by occurrence id; last write wins, matching append-only "current" semantics elsewhere in this repo
}

// NewMemory returns an empty Memory repository.
func NewMemory() *Memory {
	return &Memory{
		tasks:       make(map[string]domain.TaskDefinition),
		occurrences: make(map[string]domain.TaskOccurrence),
		executions:  make(map[string]domain.TaskExecution),
	}
}

var _ Repository = (*Memory)(nil)

func (m *Memory) AddTask(_ context.Context, task domain.TaskDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
	return nil
}

func (m *Memory) GetTask(_ context.Context, id string) (*domain.TaskDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

func (m *Memory) ListTasks(_ context.Context) ([]domain.TaskDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TaskDefinition, 0, len(m.tasks))
	for _, task := range m.tasks {
		out = append(out, task)
	}
	return out, nil
}

func (m *Memory) AddOccurrence(_ context.Context, occ domain.TaskOccurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occurrences[occ.ID] = occ
	return nil
}

func (m *Memory) ListOccurrences(_ context.Context) ([]domain.TaskOccurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TaskOccurrence, 0, len(m.occurrences))
	for _, occ := range m.occurrences {
		out = append(out, occ)
	}
	return out, nil
}

func (m *Memory) AddExecution(_ context.Context, exec domain.TaskExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions[exec.OccurrenceID] = exec
	return nil
}

func (m *Memory) ListExecutions(_ context.Context) ([]domain.TaskExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TaskExecution, 0, len(m.executions))
	for _, exec := range m.executions {
		out = append(out, exec)
	}
	return out, nil
}

func (m *Memory) DeleteTaskAndRelated(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	for id, occ := range m.occurrences {
		if occ.TaskID != taskID {
			continue
		}
		delete(m.occurrences, id)
		delete(m.executions, id)
	}
	return nil
}
