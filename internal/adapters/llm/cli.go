package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/logging"
)

// DefaultCLITimeout bounds one command when no timeout is configured.
const DefaultCLITimeout = 2 * time.Minute

// CLIModel runs a local command per request, writing the prompt to stdin
// and reading the completion from stdout, e.g. `ollama run phi3.5`.
type CLIModel struct {
	name    string
	path    string
	args    []string
	timeout time.Duration
	logger  *logging.Logger
}

// CommandResult holds the captured output of one command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// NewCLIModel creates a command-line backend.
func NewCLIModel(cfg BackendConfig, logger *logging.Logger) (*CLIModel, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "cli backend path not configured")
	}
	name := cfg.Name
	if name == "" {
		name = core.BackendCLI
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCLITimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CLIModel{
		name:    name,
		path:    cfg.Path,
		args:    cfg.Args,
		timeout: timeout,
		logger:  logger.WithBackend(name),
	}, nil
}

// Name returns the backend name.
func (m *CLIModel) Name() string { return m.name }

// Generate runs the command with the system and user prompts on stdin.
func (m *CLIModel) Generate(ctx context.Context, req core.ModelRequest) (string, error) {
	stdin := req.Prompt
	if req.SystemPrompt != "" {
		stdin = req.SystemPrompt + "\n\n" + req.Prompt
	}
	result, err := m.ExecuteCommand(ctx, stdin)
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(result.Stdout)
	if out == "" {
		return "", core.ErrCollaborator(core.CodeEmptyOutput, fmt.Sprintf("%s produced no output", m.name))
	}
	return out, nil
}

// ExecuteCommand runs the configured command once.
func (m *CLIModel) ExecuteCommand(ctx context.Context, stdin string) (*CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// Multi-word paths such as "ollama run" are split into command and args.
	cmdParts := strings.Fields(m.path)
	cmdPath := cmdParts[0]
	args := append(append([]string{}, cmdParts[1:]...), m.args...)

	// #nosec G204 -- command path and args come from validated config
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	configureProcAttr(cmd)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(), "HYBRIDQA_MANAGED=true", "HYBRIDQA_BACKEND="+m.name)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	m.logger.Debug("cli: executing command",
		"path", cmdPath,
		"args", args,
		"stdin_length", len(stdin),
		"timeout", m.timeout,
	)

	start := time.Now()
	err := cmd.Run()
	result := &CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		m.logger.Warn("cli: command timeout",
			"path", cmdPath,
			"duration", result.Duration,
			"stderr_preview", truncateForLog(result.Stderr, 500),
		)
		return result, core.ErrTimeout(fmt.Sprintf("%s timed out after %v", m.name, m.timeout))
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return result, ctx.Err()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			m.logger.Warn("cli: command failed",
				"path", cmdPath,
				"exit_code", result.ExitCode,
				"duration", result.Duration,
				"stderr", truncateForLog(result.Stderr, 2000),
			)
			return result, m.classifyError(result)
		}
		return result, core.ErrNotFound("command", cmdPath).WithCause(err)
	}

	m.logger.Debug("cli: command completed",
		"path", cmdPath,
		"duration", result.Duration,
		"stdout_length", len(result.Stdout),
	)
	return result, nil
}

func (m *CLIModel) classifyError(result *CommandResult) error {
	msg := strings.TrimSpace(result.Stderr)
	if msg == "" {
		msg = lastLine(result.Stdout)
	}
	de := classifyMessage(m.name, msg)
	if de.Code == core.CodeBackendFailed {
		de.Message = fmt.Sprintf("%s: command failed with exit code %d: %s", m.name, result.ExitCode, msg)
	}
	return de
}

// CheckAvailability verifies the command is installed.
func (m *CLIModel) CheckAvailability() error {
	cmdPath := strings.Fields(m.path)[0]
	if _, err := exec.LookPath(cmdPath); err != nil {
		return core.ErrNotFound("command", cmdPath)
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if len(line) > 200 {
			return line[:200] + "..."
		}
		return line
	}
	return ""
}
