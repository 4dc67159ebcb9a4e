package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/harrisonrobin/tasksync/pkg/model"
)

// Memory is a TaskService held entirely in memory. Deleted tasks stay in the
// collection with StatusDeleted set.
type Memory struct {
	mu        sync.RWMutex
	order     []string
	tasks     map[string]model.Task
	persisted []model.Task
	// FailPersist, when set, is returned by Persist instead of storing the task.
	FailPersist func(task model.Task) error
}

// NewMemory creates a Memory service seeded with tasks. Seed tasks without an
// ID are given one.
func NewMemory(tasks ...model.Task) *Memory {
	m := &Memory{tasks: make(map[string]model.Task)}
	for _, t := range tasks {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		m.put(t)
	}
	return m
}

func (m *Memory) put(t model.Task) {
	if _, exists := m.tasks[t.ID]; !exists {
		m.order = append(m.order, t.ID)
	}
	m.tasks[t.ID] = t
}

func (m *Memory) AllTasks(ctx context.Context) ([]model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := make([]model.Task, 0, len(m.order))
	for _, id := range m.order {
		tasks = append(tasks, m.tasks[id])
	}
	return tasks, nil
}

func (m *Memory) Task(ctx context.Context, id string) (model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

func (m *Memory) Persist(ctx context.Context, task model.Task) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPersist != nil {
		if err := m.FailPersist(task); err != nil {
			return model.Task{}, err
		}
	}

	if task.ID == "" {
		task.ID = uuid.NewString()
	} else if _, ok := m.tasks[task.ID]; !ok {
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, task.ID)
	}
	m.put(task)
	m.persisted = append(m.persisted, task)
	return task, nil
}

// Remove drops a task without recording a persist, as if it had been deleted
// outside the synchroniser.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return
	}
	delete(m.tasks, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Persisted returns every task passed to a successful Persist, in call order.
func (m *Memory) Persisted() []model.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Task, len(m.persisted))
	copy(out, m.persisted)
	return out
}

// Len returns the number of tasks in the collection, deleted ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}
