// Package tasksync reconciles a destination task service against a source
// task service, using a TaskMap to remember which tasks correspond.
//
// A pass is source-authoritative: new source tasks are created on the
// destination, mapped tasks are overwritten from the source, and mapped
// destination tasks whose source has gone are marked deleted. Marking is an
// annotation only; what a destination does with a deleted task is up to its
// TaskService implementation.
//
// TaskSync does no locking and no retrying. Callers must not run two passes
// over the same TaskMap at once.
package tasksync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harrisonrobin/tasksync/pkg/logging"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/service"
	"github.com/harrisonrobin/tasksync/pkg/taskmap"
)

// ErrDuplicateSourceID is returned when the source snapshot holds two tasks
// with the same id. The pass stops before writing anything.
var ErrDuplicateSourceID = errors.New("duplicate source task id")

// TaskSync runs synchronisation passes between two task services.
type TaskSync struct {
	src    service.TaskService
	dst    service.TaskService
	m      *taskmap.TaskMap
	logger *slog.Logger
}

type Option func(*TaskSync)

// WithLogger sets the logger used for per-task decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(s *TaskSync) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(src, dst service.TaskService, m *taskmap.TaskMap, opts ...Option) *TaskSync {
	s := &TaskSync{
		src:    src,
		dst:    dst,
		m:      m,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result summarises one pass.
type Result struct {
	Created        int
	Recreated      int
	Updated        int
	Unchanged      int
	Deleted        int
	OrphansRemoved int
	// Tasks holds every destination task the pass touched, with its Status set.
	Tasks []model.Task
}

func (r *Result) record(t model.Task) {
	r.Tasks = append(r.Tasks, t)
}

// Synchronise runs one pass. On error the pass stops; destination writes and
// map changes made before the failure are kept, and the partial Result is
// returned alongside the error.
func (s *TaskSync) Synchronise(ctx context.Context, cleanOrphans bool) (*Result, error) {
	res := &Result{}

	srcTasks, err := s.src.AllTasks(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list source tasks: %w", err)
	}
	dstTasks, err := s.dst.AllTasks(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list destination tasks: %w", err)
	}
	seen := make(map[string]bool, len(srcTasks))
	for _, src := range srcTasks {
		if seen[src.ID] {
			return res, fmt.Errorf("%w: %s", ErrDuplicateSourceID, src.ID)
		}
		seen[src.ID] = true
	}
	s.logger.Debug("snapshots loaded", "source_tasks", len(srcTasks), "destination_tasks", len(dstTasks), "mappings", s.m.Len())

	dstByID := make(map[string]model.Task, len(dstTasks))
	for _, d := range dstTasks {
		dstByID[d.ID] = d
	}

	visited := make(map[string]bool, len(srcTasks))
	for _, src := range srcTasks {
		if err := s.syncTask(ctx, src, dstByID, res); err != nil {
			return res, err
		}
		visited[src.ID] = true
	}

	for _, dst := range dstTasks {
		srcID, mapped := s.m.TrySourceID(dst.ID)
		if !mapped || visited[srcID] {
			continue
		}
		if dst.Status == model.StatusDeleted {
			continue
		}
		dst.Status = model.StatusDeleted
		persisted, err := s.dst.Persist(ctx, dst)
		if err != nil {
			return res, fmt.Errorf("failed to mark destination task %s deleted: %w", dst.ID, err)
		}
		s.logger.Info("source task gone, destination marked deleted", "source_id", srcID, "destination_id", dst.ID)
		res.Deleted++
		res.record(persisted)
	}

	if cleanOrphans {
		res.OrphansRemoved = s.cleanOrphans(visited)
	}
	return res, nil
}

func (s *TaskSync) syncTask(ctx context.Context, src model.Task, dstByID map[string]model.Task, res *Result) error {
	dstID, mapped := s.m.TryDestinationID(src.ID)
	if !mapped {
		created, err := s.create(ctx, src)
		if err != nil {
			return err
		}
		s.logger.Info("created destination task", "source_id", src.ID, "destination_id", created.ID)
		res.Created++
		res.record(created)
		return nil
	}

	dst, found := dstByID[dstID]
	if !found {
		// The mapping must go before the new one is added.
		s.m.UnmapBySource(src.ID)
		created, err := s.create(ctx, src)
		if err != nil {
			return err
		}
		s.logger.Info("recreated missing destination task", "source_id", src.ID, "old_destination_id", dstID, "destination_id", created.ID)
		res.Recreated++
		res.record(created)
		return nil
	}

	if dst.SameContent(src) {
		dst.Status = model.StatusUnchanged
		s.logger.Debug("destination task up to date", "source_id", src.ID, "destination_id", dst.ID)
		res.Unchanged++
		res.record(dst)
		return nil
	}

	dst.CopyFrom(src)
	dst.Status = model.StatusUpdated
	updated, err := s.dst.Persist(ctx, dst)
	if err != nil {
		return fmt.Errorf("failed to update destination task %s: %w", dst.ID, err)
	}
	s.logger.Info("updated destination task", "source_id", src.ID, "destination_id", updated.ID)
	res.Updated++
	res.record(updated)
	return nil
}

func (s *TaskSync) create(ctx context.Context, src model.Task) (model.Task, error) {
	var dst model.Task
	dst.CopyFrom(src)
	dst.Status = model.StatusNew

	created, err := s.dst.Persist(ctx, dst)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to create destination task for source %s: %w", src.ID, err)
	}
	if created.ID == "" {
		return model.Task{}, fmt.Errorf("destination service returned no id for source %s", src.ID)
	}
	created.Status = model.StatusNew

	if err := s.m.Map(src, created); err != nil {
		return model.Task{}, fmt.Errorf("failed to map source %s to destination %s: %w", src.ID, created.ID, err)
	}
	return created, nil
}

// cleanOrphans drops every mapping whose source ID is not a current source
// task. Mappings made during this pass always have a current source.
func (s *TaskSync) cleanOrphans(current map[string]bool) int {
	removed := 0
	for _, srcID := range s.m.AllSourceIDs() {
		if current[srcID] {
			continue
		}
		dstID, _ := s.m.TryDestinationID(srcID)
		s.m.UnmapBySource(srcID)
		s.logger.Info("removed orphan mapping", "source_id", srcID, "destination_id", dstID)
		removed++
	}
	return removed
}
