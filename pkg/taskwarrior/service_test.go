package taskwarrior

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTask emulates enough of the Taskwarrior CLI for export and import.
type fakeTask struct {
	tasks map[string]Task
	order []string
}

func newFakeTask(seed ...Task) *fakeTask {
	f := &fakeTask{tasks: make(map[string]Task)}
	for _, t := range seed {
		f.upsert(t)
	}
	return f
}

func (f *fakeTask) upsert(t Task) {
	if _, ok := f.tasks[t.UUID]; !ok {
		f.order = append(f.order, t.UUID)
	}
	f.tasks[t.UUID] = t
}

func (f *fakeTask) run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	var filters []string
	for _, a := range args {
		switch {
		case a == "import":
			var in []Task
			if err := json.NewDecoder(stdin).Decode(&in); err != nil {
				return nil, err
			}
			for _, t := range in {
				f.upsert(t)
			}
			return nil, nil
		case a == "export" || a == "-" || len(a) > 3 && a[:3] == "rc.":
		default:
			filters = append(filters, a)
		}
	}

	out := []Task{}
	for _, id := range f.order {
		t := f.tasks[id]
		if matches(t, filters) {
			out = append(out, t)
		}
	}
	return json.Marshal(out)
}

func matches(t Task, filters []string) bool {
	for _, flt := range filters {
		switch {
		case flt == "status.not:deleted":
			if t.Status == DELETED {
				return false
			}
		case uuid.Validate(flt) == nil:
			if t.UUID != flt {
				return false
			}
		}
	}
	return true
}

func newTestService(f *fakeTask) *Service {
	s := NewService(NewClient("task", WithRunner(f.run)), nil)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC) }
	return s
}

func TestAllTasksMapsFields(t *testing.T) {
	f := newFakeTask(
		Task{UUID: uuid.NewString(), Description: "Run 5k", Status: PENDING, Priority: "H", Attribute: "constitution", Notes: "slowly"},
		Task{UUID: uuid.NewString(), Description: "Read", Status: COMPLETED, Attribute: "bogus"},
		Task{UUID: uuid.NewString(), Description: "Gone", Status: DELETED},
	)

	tasks, err := newTestService(f).AllTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2, "deleted tasks are filtered out by default")

	assert.Equal(t, "Run 5k", tasks[0].Name)
	assert.Equal(t, "slowly", tasks[0].Description)
	assert.Equal(t, model.Hard, tasks[0].Difficulty)
	assert.Equal(t, model.Constitution, tasks[0].Attribute)
	assert.False(t, tasks[0].Completed)

	assert.True(t, tasks[1].Completed)
	assert.Equal(t, model.Trivial, tasks[1].Difficulty)
	assert.Equal(t, model.Strength, tasks[1].Attribute, "unknown attribute falls back to strength")
}

func TestPersistCreates(t *testing.T) {
	ctx := context.Background()
	f := newFakeTask()
	s := newTestService(f)

	created, err := s.Persist(ctx, model.Task{
		Name:        "File taxes",
		Description: "before April",
		Difficulty:  model.Medium,
		Attribute:   model.Intelligence,
		Status:      model.StatusNew,
	})
	require.NoError(t, err)
	require.NoError(t, uuid.Validate(created.ID))
	assert.Equal(t, model.StatusNew, created.Status)

	raw := f.tasks[created.ID]
	assert.Equal(t, "File taxes", raw.Description)
	assert.Equal(t, "before April", raw.Notes)
	assert.Equal(t, "M", raw.Priority)
	assert.Equal(t, "intelligence", raw.Attribute)
	assert.Equal(t, PENDING, raw.Status)
	require.NotNil(t, raw.Entry)
	assert.Nil(t, raw.End)

	got, err := s.Task(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.SameContent(created))
}

func TestPersistUpdateKeepsUnsyncedFields(t *testing.T) {
	ctx := context.Background()
	id := uuid.NewString()
	f := newFakeTask(Task{UUID: id, Description: "old", Status: PENDING, Project: "Home", Tags: []string{"chore"}})
	s := newTestService(f)

	_, err := s.Persist(ctx, model.Task{ID: id, Name: "new", Completed: true, Difficulty: model.Easy, Attribute: model.Perception})
	require.NoError(t, err)

	raw := f.tasks[id]
	assert.Equal(t, "new", raw.Description)
	assert.Equal(t, COMPLETED, raw.Status)
	assert.Equal(t, "L", raw.Priority)
	assert.Equal(t, "Home", raw.Project)
	assert.Equal(t, []string{"chore"}, raw.Tags)
	require.NotNil(t, raw.End)

	// reopening clears the end date
	_, err = s.Persist(ctx, model.Task{ID: id, Name: "new", Completed: false})
	require.NoError(t, err)
	assert.Equal(t, PENDING, f.tasks[id].Status)
	assert.Nil(t, f.tasks[id].End)
}

func TestPersistDeleted(t *testing.T) {
	ctx := context.Background()
	id := uuid.NewString()
	f := newFakeTask(Task{UUID: id, Description: "obsolete", Status: PENDING})
	s := newTestService(f)

	_, err := s.Persist(ctx, model.Task{ID: id, Name: "obsolete", Status: model.StatusDeleted})
	require.NoError(t, err)
	assert.Equal(t, DELETED, f.tasks[id].Status)

	tasks, err := s.AllTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	got, err := s.Task(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeleted, got.Status)
}

func TestPersistUnknownTask(t *testing.T) {
	s := newTestService(newFakeTask())

	_, err := s.Persist(context.Background(), model.Task{ID: uuid.NewString(), Name: "x"})
	assert.ErrorIs(t, err, service.ErrTaskNotFound)

	_, err = s.Task(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
}

func TestDifficultyPriorityRoundTrip(t *testing.T) {
	for _, d := range model.Difficulties {
		assert.Equal(t, d, difficultyFor(priorityFor(d)), d)
	}
}
