package taskwarrior

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/service"
)

// DefaultFilter hides tasks Taskwarrior considers deleted.
var DefaultFilter = []string{"status.not:deleted"}

// Service exposes Taskwarrior as a service.TaskService. A task persisted
// with StatusDeleted gets Taskwarrior status "deleted".
type Service struct {
	client *Client
	filter []string
	now    func() time.Time
}

func NewService(client *Client, filter []string) *Service {
	if len(filter) == 0 {
		filter = DefaultFilter
	}
	return &Service{client: client, filter: filter, now: time.Now}
}

func (s *Service) AllTasks(ctx context.Context) ([]model.Task, error) {
	raw, err := s.client.Export(ctx, s.filter...)
	if err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0, len(raw))
	for _, r := range raw {
		tasks = append(tasks, toModel(r))
	}
	return tasks, nil
}

func (s *Service) Task(ctx context.Context, id string) (model.Task, error) {
	raw, err := s.lookup(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	return toModel(raw), nil
}

func (s *Service) lookup(ctx context.Context, id string) (Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Task{}, fmt.Errorf("%w: %s is not a taskwarrior uuid", service.ErrTaskNotFound, id)
	}
	raw, err := s.client.Export(ctx, id)
	if err != nil {
		return Task{}, err
	}
	for _, r := range raw {
		if r.UUID == id {
			return r, nil
		}
	}
	return Task{}, fmt.Errorf("%w: %s", service.ErrTaskNotFound, id)
}

func (s *Service) Persist(ctx context.Context, task model.Task) (model.Task, error) {
	now := s.now()

	var raw Task
	if task.ID == "" {
		raw = Task{UUID: uuid.NewString(), Status: PENDING, Entry: timeAt(now)}
	} else {
		existing, err := s.lookup(ctx, task.ID)
		if err != nil {
			return model.Task{}, err
		}
		raw = existing
	}

	apply(&raw, task, now)
	if err := s.client.Import(ctx, raw); err != nil {
		return model.Task{}, fmt.Errorf("failed to import task %s: %w", raw.UUID, err)
	}

	task.ID = raw.UUID
	return task, nil
}

// apply writes the synchronised fields of t into raw, leaving project, tags,
// due dates and annotations as they were.
func apply(raw *Task, t model.Task, now time.Time) {
	raw.Description = t.Name
	raw.Notes = t.Description
	raw.Priority = priorityFor(t.Difficulty)
	raw.Attribute = string(t.Attribute)
	raw.Modified = timeAt(now)

	switch {
	case t.Status == model.StatusDeleted:
		raw.Status = DELETED
	case t.Completed:
		raw.Status = COMPLETED
	case raw.Status == COMPLETED || raw.Status == DELETED || raw.Status == "":
		raw.Status = PENDING
	}

	if raw.Status == COMPLETED || raw.Status == DELETED {
		if raw.End == nil || raw.End.IsZero() {
			raw.End = timeAt(now)
		}
	} else {
		raw.End = nil
	}
}

func toModel(r Task) model.Task {
	t := model.Task{
		ID:          r.UUID,
		Name:        r.Description,
		Description: r.Notes,
		Completed:   r.Status == COMPLETED,
		Difficulty:  difficultyFor(r.Priority),
		Attribute:   model.Strength,
	}
	if a, err := model.ParseAttribute(r.Attribute); err == nil {
		t.Attribute = a
	}
	if r.Status == DELETED {
		t.Status = model.StatusDeleted
	}
	return t
}

func priorityFor(d model.Difficulty) string {
	switch d {
	case model.Hard:
		return "H"
	case model.Medium:
		return "M"
	case model.Easy:
		return "L"
	default:
		return ""
	}
}

func difficultyFor(priority string) model.Difficulty {
	switch priority {
	case "H":
		return model.Hard
	case "M":
		return model.Medium
	case "L":
		return model.Easy
	default:
		return model.Trivial
	}
}
