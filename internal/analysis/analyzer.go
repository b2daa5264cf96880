package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"earshot/internal/services"
)

// Analyzer extracts features from an audio file.
type Analyzer interface {
	Analyze(ctx context.Context, audioPath string) (*Features, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the exec analyzer.
type Option func(*ExecAnalyzer)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(a *ExecAnalyzer) {
		if exec != nil {
			a.exec = exec
		}
	}
}

// ExecAnalyzer shells out to a configured command that reads an audio path
// and prints a Features JSON document on stdout.
type ExecAnalyzer struct {
	command    []string
	sampleRate int
	timeout    time.Duration
	exec       Executor
}

// NewExecAnalyzer constructs an ExecAnalyzer from the configured command
// line. An empty command is allowed; Analyze then fails with TOOL_MISSING.
func NewExecAnalyzer(command string, sampleRate, timeoutSec int, opts ...Option) *ExecAnalyzer {
	analyzer := &ExecAnalyzer{
		command:    strings.Fields(command),
		sampleRate: sampleRate,
		timeout:    time.Duration(timeoutSec) * time.Second,
		exec:       commandExecutor{},
	}
	for _, opt := range opts {
		opt(analyzer)
	}
	return analyzer
}

// Analyze runs the external command against audioPath.
func (a *ExecAnalyzer) Analyze(ctx context.Context, audioPath string) (*Features, error) {
	if len(a.command) == 0 {
		return nil, services.NewError(services.KindAnalysis, services.CodeToolMissing,
			"no analysis command configured")
	}

	runCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	args := append([]string{}, a.command[1:]...)
	if a.sampleRate > 0 {
		args = append(args, "--sample-rate", strconv.Itoa(a.sampleRate))
	}
	args = append(args, audioPath)

	stdout, err := a.exec.Run(runCtx, a.command[0], args)
	if err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound):
			return nil, services.WrapError(services.KindAnalysis, services.CodeToolMissing,
				fmt.Sprintf("analysis command %q is not installed", a.command[0]), err)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, services.WrapError(services.KindAnalysis, services.CodeTimeout,
				"feature analysis timed out", err)
		default:
			return nil, services.WrapError(services.KindAnalysis, services.CodeToolFailed,
				"feature analysis failed", err)
		}
	}

	var features Features
	if err := json.Unmarshal(stdout, &features); err != nil {
		return nil, services.WrapError(services.KindAnalysis, services.CodeBadOutput,
			"analysis command returned malformed JSON", err)
	}
	return &features, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", ctxErr, err)
		}
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
