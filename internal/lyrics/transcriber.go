package lyrics

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"earshot/internal/services"
)

// Transcriber converts retrieved audio into plain lyric text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, modelSize string) (string, error)
}

// Executor runs an external binary and returns its stdout.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// ExecTranscriber shells out to a whisper-style CLI that prints the
// transcript on stdout.
type ExecTranscriber struct {
	command []string
	exec    Executor
}

// Option configures an ExecTranscriber.
type Option func(*ExecTranscriber)

// WithExecutor overrides the command executor.
func WithExecutor(executor Executor) Option {
	return func(t *ExecTranscriber) {
		t.exec = executor
	}
}

// NewExecTranscriber builds a transcriber from a command line such as
// "whisper-ctranslate2 --output_format txt". Returns nil when the command is
// empty, meaning no ASR backend is configured.
func NewExecTranscriber(command string, opts ...Option) *ExecTranscriber {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}
	t := &ExecTranscriber{
		command: fields,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe runs the configured command against the audio file.
func (t *ExecTranscriber) Transcribe(ctx context.Context, audioPath, modelSize string) (string, error) {
	args := append([]string{}, t.command[1:]...)
	if modelSize != "" {
		args = append(args, "--model", modelSize)
	}
	args = append(args, audioPath)

	out, err := t.exec.Run(ctx, t.command[0], args)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", services.WrapError(services.KindLyrics, services.CodeToolMissing, "transcription binary not found: "+t.command[0], err)
		}
		return "", services.WrapError(services.KindLyrics, services.CodeToolFailed, "transcription command failed", err)
	}
	return string(out), nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return nil, errors.New(detail)
		}
		return nil, err
	}
	return []byte(stdout.String()), nil
}
