package taskwarrior

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/harrisonrobin/tasksync/pkg/logging"
)

// Runner executes a command with stdin and returns its stdout.
type Runner func(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("taskwarrior command failed: exit code %d, %s, stderr: %s",
				exitErr.ExitCode(), err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("taskwarrior command failed: %w", err)
	}
	return output, nil
}

type Client struct {
	bin    string
	run    Runner
	logger *slog.Logger
}

type ClientOption func(*Client)

// WithRunner replaces the os/exec based command runner.
func WithRunner(run Runner) ClientOption {
	return func(c *Client) {
		c.run = run
	}
}

// WithLogger logs each task invocation at debug level.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient returns a client for the Taskwarrior binary bin ("task" when empty).
func NewClient(bin string, opts ...ClientOption) *Client {
	if bin == "" {
		bin = "task"
	}
	c := &Client{bin: bin, run: execRunner, logger: logging.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export returns the tasks matching filter. Hooks are disabled so the
// export cannot trigger another sync.
func (c *Client) Export(ctx context.Context, filter ...string) ([]Task, error) {
	args := append([]string{"rc.hooks=0", "rc.json.array=on"}, filter...)
	args = append(args, "export")

	c.logger.Debug("running task export", "bin", c.bin, "args", args)
	output, err := c.run(ctx, nil, c.bin, args...)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	if len(bytes.TrimSpace(output)) == 0 {
		return tasks, nil
	}
	if err := json.Unmarshal(output, &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal taskwarrior output: %w", err)
	}
	c.logger.Debug("task export finished", "tasks", len(tasks))
	return tasks, nil
}

// Import creates or replaces tasks by UUID.
func (c *Client) Import(ctx context.Context, tasks ...Task) error {
	payload, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode tasks for import: %w", err)
	}
	c.logger.Debug("running task import", "bin", c.bin, "tasks", len(tasks))
	_, err = c.run(ctx, bytes.NewReader(payload), c.bin, "rc.hooks=0", "rc.verbose=nothing", "import", "-")
	return err
}
