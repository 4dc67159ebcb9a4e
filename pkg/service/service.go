// Package service defines the capability every task backend provides to the
// synchroniser.
package service

import (
	"context"
	"errors"

	"github.com/harrisonrobin/tasksync/pkg/model"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrReadOnly     = errors.New("task service is read-only")
)

// TaskService gives CRUD-style access to one side's tasks.
type TaskService interface {
	// AllTasks returns a full snapshot of the current tasks, in no particular order.
	AllTasks(ctx context.Context) ([]model.Task, error)

	// Task returns the task with the given id, or ErrTaskNotFound.
	Task(ctx context.Context, id string) (model.Task, error)

	// Persist creates the task when its ID is empty and updates it otherwise.
	// The returned task carries the authoritative ID.
	Persist(ctx context.Context, task model.Task) (model.Task, error)
}
