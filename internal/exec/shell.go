package exec

import (
	"context"
	"strings"

	"github.com/ShayCichocki/hive/internal/engine"
	"github.com/ShayCichocki/hive/pkg/models"
)

// ShellExecutor runs a task's payload as a shell command and maps the
// outcome onto the agent executor contract. It is the real backend for
// agents whose category maps to command-line work; cancellation is honored
// through the command's context.
type ShellExecutor struct {
	runner  CommandRunner
	workDir string
}

// NewShellExecutor creates a ShellExecutor running commands in workDir.
func NewShellExecutor(runner CommandRunner, workDir string) *ShellExecutor {
	return &ShellExecutor{runner: runner, workDir: workDir}
}

// Execute implements engine.Executor.
func (s *ShellExecutor) Execute(ctx context.Context, task *models.Task) engine.ExecResult {
	out, err := s.runner.RunShell(ctx, s.workDir, task.Payload)
	output := strings.TrimSpace(string(out))

	if err != nil {
		return engine.ExecResult{
			Success: false,
			Output:  output,
			Err:     err.Error(),
		}
	}
	return engine.ExecResult{
		Success: true,
		Output:  output,
	}
}

var _ engine.Executor = (*ShellExecutor)(nil)
