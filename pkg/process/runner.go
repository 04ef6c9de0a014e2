// Package process runs one-shot external command lines and captures
// their output for relay into chat.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"toribot/pkg/logger"
)

const (
	defaultPTYRows = 40
	defaultPTYCols = 120
)

// ExitError reports a command that ran but exited non-zero. Output holds
// whatever escape-stripped text was captured before the exit.
type ExitError struct {
	Code   int
	Output string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Options configures how commands are executed.
type Options struct {
	Workdir string
	Timeout time.Duration
	UsePTY  bool
}

// Runner executes command lines through the shell.
type Runner struct {
	log  *logger.Logger
	opts Options
}

// NewRunner creates a command runner.
func NewRunner(log *logger.Logger, opts Options) *Runner {
	return &Runner{log: log, opts: opts}
}

// Run executes command through the shell and returns its combined output
// with terminal escape sequences removed. On timeout or non-zero exit an
// error is returned alongside whatever output was captured first.
func (r *Runner) Run(ctx context.Context, command string) (string, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	shellPath := resolveShellPath()
	cmd := exec.CommandContext(ctx, shellPath, "-c", command)
	cmd.Env = buildProcessEnv(os.Environ())
	// Orphaned children can hold the output pipe open past the kill.
	cmd.WaitDelay = 3 * time.Second
	if r.opts.Workdir != "" {
		cmd.Dir = r.opts.Workdir
	}

	r.log.Debug("Running external command",
		zap.String("command", command),
		zap.String("shell", shellPath),
		zap.Bool("pty", r.opts.UsePTY))

	started := time.Now()
	var raw []byte
	var runErr error
	if r.opts.UsePTY {
		raw, runErr = runWithPTY(cmd)
	} else {
		raw, runErr = cmd.CombinedOutput()
	}
	output := Clean(string(raw))

	if ctx.Err() == context.DeadlineExceeded {
		r.log.Warn("External command timed out",
			zap.String("command", command),
			zap.Duration("timeout", r.opts.Timeout))
		return output, fmt.Errorf("command timed out after %s: %w", r.opts.Timeout, context.DeadlineExceeded)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			r.log.Debug("External command exited non-zero",
				zap.String("command", command),
				zap.Int("exit_code", exitErr.ExitCode()),
				zap.Duration("duration", time.Since(started)))
			return output, &ExitError{Code: exitErr.ExitCode(), Output: output}
		}
		return output, fmt.Errorf("running command: %w", runErr)
	}

	r.log.Debug("External command finished",
		zap.String("command", command),
		zap.Duration("duration", time.Since(started)))

	return output, nil
}

// runWithPTY starts cmd under a pseudo-terminal and drains it until the
// command exits. Some CLIs refuse to run non-interactively without one.
func runWithPTY(cmd *exec.Cmd) ([]byte, error) {
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: defaultPTYRows,
		Cols: defaultPTYCols,
	})
	if err != nil {
		return nil, fmt.Errorf("starting PTY: %w", err)
	}
	defer ptmx.Close()

	var buf bytes.Buffer
	// The read side errors once the child exits; the exit status from
	// Wait is what counts.
	_, _ = io.Copy(&buf, ptmx)

	return buf.Bytes(), cmd.Wait()
}

var ansiEscapeRe = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07]*(?:\x07|\x1b\\)`)

// Clean removes terminal escape sequences and normalizes carriage
// returns so captured output reads as plain chat text.
func Clean(s string) string {
	s = ansiEscapeRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// buildProcessEnv forces color output off so captured text stays plain.
func buildProcessEnv(base []string) []string {
	overrides := [][2]string{
		{"NO_COLOR", "1"},
		{"TERM", "dumb"},
		{"CLICOLOR", "0"},
	}

	env := append([]string{}, base...)
	for _, override := range overrides {
		key, value := override[0], override[1]
		replaced := false
		for i := range env {
			if strings.HasPrefix(env[i], key+"=") {
				env[i] = key + "=" + value
				replaced = true
				break
			}
		}
		if !replaced {
			env = append(env, key+"="+value)
		}
	}

	return env
}

func resolveShellPath() string {
	candidates := []string{
		"/bin/sh",
		"/usr/bin/sh",
		"/bin/bash",
		"/usr/bin/bash",
		"/usr/local/bin/bash",
		"/bin/zsh",
		"/usr/bin/zsh",
		"/bin/ash",
		"/usr/bin/ash",
		"/system/bin/sh",
	}
	for _, path := range candidates {
		if isExecutableFile(path) {
			return path
		}
	}
	for _, name := range []string{"sh", "bash", "zsh", "ash"} {
		lookedUp, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		if isExecutableFile(lookedUp) {
			return lookedUp
		}
	}
	return "sh"
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
