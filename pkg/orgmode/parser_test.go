package orgmode

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `#+TITLE: Todo

* Projects
** TODO [#A] Write the report :work:intelligence:
   DEADLINE: <2024-05-01 Wed 17:00>
   :PROPERTIES:
   :ID:       5b1d6c1e-8f6a-4d5e-9a55-6f1f0f0e0a01
   :END:
   Numbers for Q1.
   Ask Sam for the charts.
** DONE Stretch :perception:
   :PROPERTIES:
   :ID: stretch-1
   :END:
** TODO No identity
   Some notes.
* TODO [#C] Water plants
  :PROPERTIES:
  :ID: plants
  :END:
* Notes
  Not a task.
`

func TestParse(t *testing.T) {
	tasks, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	report := tasks[0]
	assert.Equal(t, "5b1d6c1e-8f6a-4d5e-9a55-6f1f0f0e0a01", report.ID)
	assert.Equal(t, "Write the report", report.Name)
	assert.Equal(t, "Numbers for Q1.\nAsk Sam for the charts.", report.Description)
	assert.Equal(t, model.Hard, report.Difficulty)
	assert.Equal(t, model.Intelligence, report.Attribute)
	assert.False(t, report.Completed)

	stretch := tasks[1]
	assert.Equal(t, "stretch-1", stretch.ID)
	assert.True(t, stretch.Completed)
	assert.Equal(t, model.Trivial, stretch.Difficulty)
	assert.Equal(t, model.Perception, stretch.Attribute)
	assert.Empty(t, stretch.Description)

	plants := tasks[2]
	assert.Equal(t, "plants", plants.ID)
	assert.Equal(t, model.Easy, plants.Difficulty)
	assert.Equal(t, model.Strength, plants.Attribute)
}

func TestServiceReadsFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "todo.org")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0600))

	s := NewService([]string{path}, nil)
	all, err := s.AllTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := s.Task(ctx, "plants")
	require.NoError(t, err)
	assert.Equal(t, "Water plants", got.Name)

	_, err = s.Task(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrTaskNotFound)

	_, err = s.Persist(ctx, got)
	assert.ErrorIs(t, err, service.ErrReadOnly)
}

func TestServiceMissingFile(t *testing.T) {
	_, err := NewService([]string{filepath.Join(t.TempDir(), "nope.org")}, nil).AllTasks(context.Background())
	assert.Error(t, err)
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	doc := `* TODO First
  :PROPERTIES:
  :ID: same
  :END:
* TODO Second
  :PROPERTIES:
  :ID: same
  :END:
`
	_, err := Parse(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestParseFilesRejectsIDsSharedAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.org")
	b := filepath.Join(dir, "b.org")
	require.NoError(t, os.WriteFile(a, []byte(sample), 0600))
	require.NoError(t, os.WriteFile(b, []byte(sample), 0600))

	_, err := ParseFiles([]string{a, b})
	require.ErrorIs(t, err, ErrDuplicateID)
	assert.Contains(t, err.Error(), "b.org")
}

func TestServiceLogsParsedTasks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.org")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0600))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err := NewService([]string{path}, logger).AllTasks(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "tasks=3")
}
