package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	calerrors "github.com/AndreyAkinshin/calcheck/internal/errors"
)

// Exec invokes an external solver program. The request is written as JSON
// on stdin and the response is read as JSON from stdout.
type Exec struct {
	Command string
	Args    []string
	Dir     string
	Logger  *slog.Logger
}

// NewExec creates an Exec solver for the given command.
func NewExec(command string, args ...string) *Exec {
	return &Exec{Command: command, Args: args}
}

// Solve implements Solver.
func (e *Exec) Solve(ctx context.Context, req *Request) (*Response, error) {
	if e.Command == "" {
		return nil, calerrors.Config("no solver command configured (set solver.command)")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, calerrors.Solver("failed to encode request", err)
	}

	cmd := exec.CommandContext(ctx, e.Command, e.Args...)
	cmd.Dir = e.Dir
	cmd.Env = os.Environ()
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger().Debug("running solver", "command", e.Command, "args", strings.Join(e.Args, " "))

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, calerrors.Environment(fmt.Sprintf("solver %q not found", e.Command), err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, calerrors.Solver("solver interrupted", ctxErr)
		}
		return nil, calerrors.Solver("solver failed", fmt.Errorf("%w (stderr: %s)", err, strings.TrimSpace(stderr.String())))
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, calerrors.Solver("failed to decode solver output", err)
	}
	return &resp, nil
}

func (e *Exec) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
