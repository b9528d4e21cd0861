// Package cache provides Redis-backed infrastructure that sits in front of
// the repository interface and the command surface: a read-through
// snapshot cache for GetTask/ListOccurrences, and a sliding-window rate
// limiter for the command endpoints that mutate scheduler state.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adil-adysh/plan-flow/internal/domain"
	"github.com/adil-adysh/plan-flow/internal/repository"
)

const (
	snapshotTTL    = 30 * time.Second
	occurrencesKey = "taskflow:occurrences:all"
)

func taskKey(id string) string { return "taskflow:task:" + id }

// NewClient creates a Redis client using the teacher's connection-pool
// shape: short dial/read/write timeouts since this cache sits on the hot
// path of every status query.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		PoolSize:     10,
	})
}

// SnapshotCache wraps a repository.Repository with a short-TTL read-through
// cache in front of GetTask and ListOccurrences. It implements
// repository.Repository itself, so callers (the Controller, the HTTP API)
// can depend on the interface without knowing whether a cache sits in
// front of the durable store.
//
// Every Add*/Delete* call delegates to the wrapped repository first and,
// once that write succeeds, invalidates the entries it could make stale;
// AddExecution invalidates nothing, since executions are not cached. The
// cache never serves a write, only reads.
type SnapshotCache struct {
	inner  repository.Repository
	client *redis.Client
}

var _ repository.Repository = (*SnapshotCache)(nil)

// NewSnapshotCache wraps inner with a Redis-backed read-through cache.
func NewSnapshotCache(inner repository.Repository, client *redis.Client) *SnapshotCache {
	return &SnapshotCache{inner: inner, client: client}
}

func (c *SnapshotCache) AddTask(ctx context.Context, task domain.TaskDefinition) error {
	if err := c.inner.AddTask(ctx, task); err != nil {
		return err
	}
	return c.invalidate(ctx, taskKey(task.ID))
}

func (c *SnapshotCache) GetTask(ctx context.Context, id string) (*domain.TaskDefinition, error) {
	data, err := c.client.Get(ctx, taskKey(id)).Bytes()
	if err == nil {
		var task domain.TaskDefinition
		if err := json.Unmarshal(data, &task); err != nil {
			return nil, fmt.Errorf("unmarshal cached task %s: %w", id, err)
		}
		return &task, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get task %s: %w", id, err)
	}

	task, err := c.inner.GetTask(ctx, id)
	if err != nil || task == nil {
		return task, err
	}
	if data, err := json.Marshal(task); err == nil {
		c.client.Set(ctx, taskKey(id), data, snapshotTTL) //nolint:errcheck
	}
	return task, nil
}

func (c *SnapshotCache) ListTasks(ctx context.Context) ([]domain.TaskDefinition, error) {
	return c.inner.ListTasks(ctx)
}

func (c *SnapshotCache) AddOccurrence(ctx context.Context, occ domain.TaskOccurrence) error {
	if err := c.inner.AddOccurrence(ctx, occ); err != nil {
		return err
	}
	return c.invalidate(ctx, occurrencesKey)
}

func (c *SnapshotCache) ListOccurrences(ctx context.Context) ([]domain.TaskOccurrence, error) {
	data, err := c.client.Get(ctx, occurrencesKey).Bytes()
	if err == nil {
		var occs []domain.TaskOccurrence
		if err := json.Unmarshal(data, &occs); err != nil {
			return nil, fmt.Errorf("unmarshal cached occurrences: %w", err)
		}
		return occs, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get occurrences: %w", err)
	}

	occs, err := c.inner.ListOccurrences(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(occs); err == nil {
		c.client.Set(ctx, occurrencesKey, data, snapshotTTL) //nolint:errcheck
	}
	return occs, nil
}

func (c *SnapshotCache) AddExecution(ctx context.Context, exec domain.TaskExecution) error {
	return c.inner.AddExecution(ctx, exec)
}

func (c *SnapshotCache) ListExecutions(ctx context.Context) ([]domain.TaskExecution, error) {
	return c.inner.ListExecutions(ctx)
}

func (c *SnapshotCache) DeleteTaskAndRelated(ctx context.Context, taskID string) error {
	if err := c.inner.DeleteTaskAndRelated(ctx, taskID); err != nil {
		return err
	}
	return c.invalidate(ctx, taskKey(taskID), occurrencesKey)
}

func (c *SnapshotCache) invalidate(ctx context.Context, keys ...string) error {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis invalidate %v: %w", keys, err)
	}
	return nil
}
