package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Command is one subprocess invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Stdin   string
	Env     []string
	Timeout time.Duration
}

// Output is what a finished subprocess produced.
type Output struct {
	Code     int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// ExecFunc runs a command. A non-zero exit status is reported through
// Output.Code; the error is reserved for failing to run at all.
type ExecFunc func(ctx context.Context, cmd Command) (Output, error)

// RunCommand is the os/exec backed ExecFunc.
func RunCommand(ctx context.Context, c Command) (Output, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.Code = exitErr.ExitCode()
		out.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		return out, nil
	}
	return out, fmt.Errorf("%s: %w", c.Name, err)
}
