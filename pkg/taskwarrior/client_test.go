package taskwarrior

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func staticRunner(output string, err error, gotArgs *[]string) Runner {
	return func(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
		if gotArgs != nil {
			*gotArgs = append([]string{name}, args...)
		}
		return []byte(output), err
	}
}

func TestExportParsesTasks(t *testing.T) {
	output := `[{
		"uuid": "f45a05b3-c12e-42e5-9c9c-333333333333",
		"description": "Buy milk",
		"status": "pending",
		"due": "20230101T120000Z",
		"project": "Groceries",
		"priority": "M",
		"notes": "the oat one",
		"attribute": "constitution",
		"tags": ["buy", "food"],
		"annotations": [
			{"entry": "20230101T120500Z", "description": "Don't forget almond milk"}
		]
	}]`

	var args []string
	client := NewClient("", WithRunner(staticRunner(output, nil, &args)))
	tasks, err := client.Export(context.Background(), "project:Groceries")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.UUID != "f45a05b3-c12e-42e5-9c9c-333333333333" {
		t.Errorf("Expected UUID f45a05b3-c12e-42e5-9c9c-333333333333, got %s", task.UUID)
	}
	if task.Description != "Buy milk" {
		t.Errorf("Expected Description 'Buy milk', got '%s'", task.Description)
	}
	if task.Notes != "the oat one" || task.Attribute != "constitution" {
		t.Errorf("Expected UDAs to be decoded, got notes=%q attribute=%q", task.Notes, task.Attribute)
	}
	if len(task.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %d", len(task.Tags))
	}
	if len(task.Annotations) != 1 {
		t.Errorf("Expected 1 annotation, got %d", len(task.Annotations))
	}
	expectedDue, _ := time.Parse(time.RFC3339, "2023-01-01T12:00:00Z")
	if !task.Due.Time.Equal(expectedDue) {
		t.Errorf("Expected Due %v, got %v", expectedDue, task.Due.Time)
	}

	want := []string{"task", "rc.hooks=0", "rc.json.array=on", "project:Groceries", "export"}
	if len(args) != len(want) {
		t.Fatalf("Expected args %v, got %v", want, args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("Expected args %v, got %v", want, args)
			break
		}
	}
}

func TestExportEmptyOutput(t *testing.T) {
	client := NewClient("task", WithRunner(staticRunner("\n", nil, nil)))
	tasks, err := client.Export(context.Background())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("Expected no tasks, got %d", len(tasks))
	}
}

func TestExportPropagatesRunnerError(t *testing.T) {
	boom := errors.New("no such binary")
	client := NewClient("task", WithRunner(staticRunner("", boom, nil)))
	if _, err := client.Export(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Expected runner error, got %v", err)
	}
}

func TestImportSendsJSONArray(t *testing.T) {
	var payload []Task
	var args []string
	client := NewClient("/usr/bin/task", WithRunner(func(ctx context.Context, stdin io.Reader, name string, a ...string) ([]byte, error) {
		args = append([]string{name}, a...)
		return nil, json.NewDecoder(stdin).Decode(&payload)
	}))

	err := client.Import(context.Background(), Task{UUID: "u1", Description: "one", Status: PENDING})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(payload) != 1 || payload[0].UUID != "u1" {
		t.Errorf("Unexpected payload %+v", payload)
	}
	if args[0] != "/usr/bin/task" || args[len(args)-2] != "import" || args[len(args)-1] != "-" {
		t.Errorf("Unexpected args %v", args)
	}
}

func TestCustomTimeRoundTrip(t *testing.T) {
	ts := CustomTime{Time: time.Date(2024, 3, 5, 7, 9, 11, 0, time.UTC)}
	b, err := json.Marshal(ts)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"20240305T070911Z"` {
		t.Errorf("Unexpected encoding %s", b)
	}

	var back CustomTime
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(ts.Time) {
		t.Errorf("Expected %v, got %v", ts.Time, back.Time)
	}

	var zero CustomTime
	if err := json.Unmarshal([]byte(`""`), &zero); err != nil || !zero.IsZero() {
		t.Errorf("Expected zero time, got %v (%v)", zero.Time, err)
	}
}

func TestClientLogsInvocations(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := NewClient("task", WithRunner(staticRunner("[]", nil, nil)), WithLogger(logger))

	if _, err := client.Export(context.Background()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if err := client.Import(context.Background(), Task{UUID: "u1"}); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	logs := buf.String()
	for _, want := range []string{"running task export", "task export finished", "running task import"} {
		if !strings.Contains(logs, want) {
			t.Errorf("Expected log %q, got:\n%s", want, logs)
		}
	}
}
