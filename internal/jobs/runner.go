package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Swind/go-simpleq/core"
)

const outputTailBytes = 4 << 10

// Result describes a finished job.
type Result struct {
	Job      string        `json:"job"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Runner executes jobs as child processes. Its Run method is a
// core.Worker[Job, Result].
type Runner struct {
	shell  string
	logger core.Logger
}

// NewRunner creates a Runner. shell runs commands given as a single string
// with spaces and no args.
func NewRunner(shell string, logger core.Logger) *Runner {
	if shell == "" {
		shell = "/bin/sh"
	}
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	return &Runner{shell: shell, logger: logger}
}

// Run executes job and waits for it. A non-zero exit is returned as an
// error wrapping *exec.ExitError, alongside the Result.
func (r *Runner) Run(ctx context.Context, job Job) (Result, error) {
	name, args := job.Command, job.Args
	if len(args) == 0 && strings.ContainsAny(name, " \t|&;<>$") {
		name, args = r.shell, []string{"-c", job.Command}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = job.Dir
	if len(job.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range job.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	var out tailBuffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	r.logger.Debug("job starting", core.F("job", job.Name), core.F("command", name))
	start := time.Now()
	err := cmd.Run()
	res := Result{
		Job:      job.Name,
		ExitCode: exitCode(cmd, err),
		Output:   out.String(),
		Duration: time.Since(start),
	}
	if err != nil {
		return res, fmt.Errorf("job %s: %w", job.Name, err)
	}
	return res, nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

// tailBuffer keeps the last outputTailBytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= outputTailBytes {
		t.buf.Reset()
		t.buf.Write(p[len(p)-outputTailBytes:])
		return n, nil
	}
	if over := t.buf.Len() + len(p) - outputTailBytes; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
