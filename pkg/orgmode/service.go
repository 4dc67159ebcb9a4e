package orgmode

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harrisonrobin/tasksync/pkg/logging"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/service"
)

// Service is a read-only service.TaskService over a set of Org files.
type Service struct {
	files  []string
	logger *slog.Logger
}

// NewService reads files on every call. A nil logger discards output.
func NewService(files []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{files: files, logger: logger}
}

func (s *Service) AllTasks(ctx context.Context) ([]model.Task, error) {
	tasks, err := ParseFiles(s.files)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("parsed org files", "files", len(s.files), "tasks", len(tasks))
	return tasks, nil
}

func (s *Service) Task(ctx context.Context, id string) (model.Task, error) {
	tasks, err := ParseFiles(s.files)
	if err != nil {
		return model.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Task{}, fmt.Errorf("%w: %s", service.ErrTaskNotFound, id)
}

func (s *Service) Persist(ctx context.Context, task model.Task) (model.Task, error) {
	return model.Task{}, fmt.Errorf("%w: org files cannot be written", service.ErrReadOnly)
}
