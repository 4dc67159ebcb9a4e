package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/harrisonrobin/tasksync/pkg/logging"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/service"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/tasks/v1"
)

const (
	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"

	trailerSep = "--"
	pageSize   = 100
)

// TaskListClient exposes one Google Tasks list as a service.TaskService.
// Persisting a task with StatusDeleted deletes it from the list.
type TaskListClient struct {
	srv    *tasks.Service
	listID string
	logger *slog.Logger
}

// NewTaskListClient creates a client for the task list listID.
func NewTaskListClient(srv *tasks.Service, listID string) *TaskListClient {
	return &TaskListClient{srv: srv, listID: listID, logger: logging.Discard()}
}

// WithLogger sets the logger for API calls and returns c.
func (c *TaskListClient) WithLogger(logger *slog.Logger) *TaskListClient {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *TaskListClient) AllTasks(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	err := c.srv.Tasks.List(c.listID).
		ShowCompleted(true).
		ShowHidden(true).
		MaxResults(pageSize).
		Pages(ctx, func(page *tasks.Tasks) error {
			for _, item := range page.Items {
				if item.Deleted {
					continue
				}
				out = append(out, toModel(item))
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve tasks from list %s: %w", c.listID, err)
	}
	c.logger.Debug("listed google tasks", "list", c.listID, "tasks", len(out))
	return out, nil
}

func (c *TaskListClient) Task(ctx context.Context, id string) (model.Task, error) {
	item, err := c.srv.Tasks.Get(c.listID, id).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return model.Task{}, fmt.Errorf("%w: %s", service.ErrTaskNotFound, id)
		}
		return model.Task{}, err
	}
	if item.Deleted {
		return model.Task{}, fmt.Errorf("%w: %s", service.ErrTaskNotFound, id)
	}
	return toModel(item), nil
}

func (c *TaskListClient) Persist(ctx context.Context, task model.Task) (model.Task, error) {
	if task.Status == model.StatusDeleted {
		if task.ID == "" {
			return task, nil
		}
		if err := c.srv.Tasks.Delete(c.listID, task.ID).Context(ctx).Do(); err != nil && !isNotFound(err) {
			return model.Task{}, fmt.Errorf("failed to delete task %s: %w", task.ID, err)
		}
		c.logger.Debug("deleted google task", "list", c.listID, "id", task.ID)
		return task, nil
	}

	item := fromModel(task)
	var (
		saved *tasks.Task
		err   error
	)
	if task.ID == "" {
		saved, err = c.srv.Tasks.Insert(c.listID, item).Context(ctx).Do()
	} else {
		saved, err = c.srv.Tasks.Update(c.listID, task.ID, item).Context(ctx).Do()
		if isNotFound(err) {
			return model.Task{}, fmt.Errorf("%w: %s", service.ErrTaskNotFound, task.ID)
		}
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to save task %q: %w", task.Name, err)
	}

	c.logger.Debug("saved google task", "list", c.listID, "id", saved.Id, "inserted", task.ID == "")
	task.ID = saved.Id
	return task, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func toModel(item *tasks.Task) model.Task {
	desc, difficulty, attribute := decodeNotes(item.Notes)
	return model.Task{
		ID:          item.Id,
		Name:        item.Title,
		Description: desc,
		Completed:   item.Status == statusCompleted,
		Difficulty:  difficulty,
		Attribute:   attribute,
	}
}

func fromModel(t model.Task) *tasks.Task {
	item := &tasks.Task{
		Id:     t.ID,
		Title:  t.Name,
		Notes:  encodeNotes(t.Description, t.Difficulty, t.Attribute),
		Status: statusNeedsAction,
	}
	if t.Completed {
		item.Status = statusCompleted
	}
	return item
}

// encodeNotes appends a trailer holding the fields Google Tasks has no
// place for:
//
//	free text
//
//	--
//	difficulty: hard
//	attribute: strength
func encodeNotes(desc string, d model.Difficulty, a model.Attribute) string {
	var b strings.Builder
	if desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}
	b.WriteString(trailerSep)
	if d != "" {
		fmt.Fprintf(&b, "\ndifficulty: %s", d)
	}
	if a != "" {
		fmt.Fprintf(&b, "\nattribute: %s", a)
	}
	return b.String()
}

// decodeNotes splits notes written by encodeNotes. Notes without a valid
// trailer are returned whole with default difficulty and attribute.
func decodeNotes(notes string) (string, model.Difficulty, model.Attribute) {
	difficulty, attribute := model.Trivial, model.Strength

	lines := strings.Split(notes, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i] != trailerSep {
			continue
		}
		fields, ok := parseTrailer(lines[i+1:])
		if !ok {
			break
		}
		if d, err := model.ParseDifficulty(fields["difficulty"]); err == nil {
			difficulty = d
		}
		if a, err := model.ParseAttribute(fields["attribute"]); err == nil {
			attribute = a
		}
		// encodeNotes puts one blank line before the separator.
		return strings.TrimSuffix(strings.Join(lines[:i], "\n"), "\n"), difficulty, attribute
	}
	return notes, difficulty, attribute
}

func parseTrailer(lines []string) (map[string]string, bool) {
	fields := make(map[string]string)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, false
		}
		key = strings.TrimSpace(key)
		if key != "difficulty" && key != "attribute" {
			return nil, false
		}
		fields[key] = strings.TrimSpace(value)
	}
	return fields, len(fields) > 0
}
