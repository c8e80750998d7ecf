package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/ShayCichocki/hive/pkg/models"
)

// fakeRunner records the command it was asked to run.
type fakeRunner struct {
	gotWorkDir string
	gotCommand string
	output     []byte
	err        error
}

func (f *fakeRunner) Run(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	return f.output, f.err
}

func (f *fakeRunner) RunShell(ctx context.Context, workDir, command string) ([]byte, error) {
	f.gotWorkDir = workDir
	f.gotCommand = command
	return f.output, f.err
}

func TestShellExecutorSuccess(t *testing.T) {
	runner := &fakeRunner{output: []byte("42 passed\n")}
	ex := NewShellExecutor(runner, "/repo")

	res := ex.Execute(context.Background(), &models.Task{Payload: "go test ./..."})
	if !res.Success {
		t.Fatalf("expected success, got err %q", res.Err)
	}
	if res.Output != "42 passed" {
		t.Errorf("output = %q", res.Output)
	}
	if runner.gotCommand != "go test ./..." || runner.gotWorkDir != "/repo" {
		t.Errorf("ran %q in %q", runner.gotCommand, runner.gotWorkDir)
	}
}

func TestShellExecutorFailure(t *testing.T) {
	runner := &fakeRunner{output: []byte("compile error"), err: errors.New("exit status 1")}
	ex := NewShellExecutor(runner, "")

	res := ex.Execute(context.Background(), &models.Task{Payload: "go build"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err != "exit status 1" {
		t.Errorf("err = %q", res.Err)
	}
	if res.Output != "compile error" {
		t.Errorf("failed attempts should keep captured output, got %q", res.Output)
	}
}

func TestExecRunnerShell(t *testing.T) {
	runner := NewRunner()
	out, err := runner.RunShell(context.Background(), "", "echo hello")
	if err != nil {
		t.Fatalf("RunShell: %v", err)
	}
	if string(out) != "hello\n" {
		t.Errorf("output = %q", out)
	}
}
