// Package journal hands validated entries to the external journal tool.
package journal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/kalambet/journal-ai/internal/entry"
)

// DefaultCommand is the journal tool invoked when none is configured.
const DefaultCommand = "file-journal"

// ErrPersistFailed indicates the journal tool did not accept the entry.
var ErrPersistFailed = errors.New("persist failed")

// PersistError describes a failed journal tool invocation. Stderr is the
// tool's error output, unmodified.
type PersistError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *PersistError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%v: %s exited with status %d", ErrPersistFailed, e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%v: %s: %v", ErrPersistFailed, e.Command, e.Err)
}

func (e *PersistError) Unwrap() []error {
	return []error{ErrPersistFailed, e.Err}
}

// Result is what the journal tool reported for a stored entry.
type Result struct {
	Filename string
	Output   string
}

// Persister stores a finished entry.
type Persister interface {
	Persist(ctx context.Context, e entry.Entry) (Result, error)
}

// runner executes a command and returns its captured output.
type runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// FileJournal persists entries by running `<command> new <filename> <body>`.
type FileJournal struct {
	command    string
	appendTags bool
	run        runner
}

var _ Persister = (*FileJournal)(nil)

// NewFileJournal returns a FileJournal running command. When appendTags is
// true the entry's tags are added to the body as a "Tags:" line.
func NewFileJournal(command string, appendTags bool) *FileJournal {
	if command == "" {
		command = DefaultCommand
	}
	return &FileJournal{command: command, appendTags: appendTags, run: execRunner}
}

// Command returns the journal tool name.
func (j *FileJournal) Command() string { return j.command }

// Args returns the arguments passed to the journal tool for e.
func (j *FileJournal) Args(e entry.Entry) []string {
	return []string{"new", SanitizeTitle(e.Title), Body(e, j.appendTags)}
}

// Persist runs the journal tool once. A non-zero exit is returned as a
// *PersistError; it is never retried.
func (j *FileJournal) Persist(ctx context.Context, e entry.Entry) (Result, error) {
	args := j.Args(e)
	slog.Debug("persisting entry", "command", j.command, "filename", args[1])

	stdout, stderr, err := j.run(ctx, j.command, args...)
	if err != nil {
		pe := &PersistError{Command: j.command, Stderr: string(stderr), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			pe.ExitCode = exitErr.ExitCode()
		}
		return Result{}, pe
	}
	return Result{Filename: args[1], Output: string(stdout)}, nil
}

// Describe renders what Persist would do, for dry runs.
func (j *FileJournal) Describe(e entry.Entry) string {
	args := j.Args(e)
	var sb strings.Builder
	sb.WriteString("[DRY RUN] Would create:\n")
	fmt.Fprintf(&sb, "  Title: %s\n", args[1])
	fmt.Fprintf(&sb, "  Content: %s\n", args[2])
	fmt.Fprintf(&sb, "  Command: %s", j.command)
	for _, a := range args {
		sb.WriteString(" ")
		sb.WriteString(shellQuote(a))
	}
	return sb.String()
}

// Check reports where the journal tool resolves on PATH.
func (j *FileJournal) Check() (string, error) {
	path, err := exec.LookPath(j.command)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", j.command, err)
	}
	return path, nil
}

// Body is the entry content as stored, optionally followed by a tag line.
func Body(e entry.Entry, appendTags bool) string {
	if !appendTags || len(e.Tags) == 0 {
		return e.Content
	}
	tags := make([]string, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = "#" + t
	}
	return e.Content + "\n\nTags: " + strings.Join(tags, " ")
}

var unsafeTitleChars = strings.NewReplacer(
	" ", "-", "/", "-", `\`, "-", ":", "-", "?", "-", "*", "-",
	`"`, "-", "'", "-", "<", "-", ">", "-", "|", "-",
)

// SanitizeTitle turns a title into a file name: path and shell unsafe
// characters become hyphens, the result is lowercased, runs of hyphens are
// collapsed and ".md" is appended unless already present.
func SanitizeTitle(title string) string {
	safe := strings.ToLower(unsafeTitleChars.Replace(strings.TrimSpace(title)))
	for strings.Contains(safe, "--") {
		safe = strings.ReplaceAll(safe, "--", "-")
	}
	safe = strings.Trim(safe, "-")
	if safe == "" {
		safe = "entry"
	}
	if !strings.HasSuffix(safe, ".md") {
		safe += ".md"
	}
	return safe
}

// shellQuote wraps s in single quotes for display.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
