package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/kalambet/journal-ai/internal/entry"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world.md"},
		{"notes.md", "notes.md"},
		{"What? A day: part 1/2", "what-a-day-part-1-2.md"},
		{`He said "no" | <ok>`, "he-said-no-ok.md"},
		{"It's  done", "it-s-done.md"},
		{"trailing -", "trailing.md"},
		{"  padded  ", "padded.md"},
		{"???", "entry.md"},
		{"Été à Paris", "été-à-paris.md"},
	}
	for _, tt := range tests {
		if got := SanitizeTitle(tt.in); got != tt.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBody(t *testing.T) {
	e := entry.Entry{Title: "T", Content: "Went for a run.", Tags: []string{"health", "running"}}

	if got := Body(e, true); got != "Went for a run.\n\nTags: #health #running" {
		t.Errorf("Body(appendTags) = %q", got)
	}
	if got := Body(e, false); got != "Went for a run." {
		t.Errorf("Body(no tags) = %q", got)
	}
	e.Tags = nil
	if got := Body(e, true); got != "Went for a run." {
		t.Errorf("Body(empty tags) = %q", got)
	}
}

func TestPersist_PassesArgs(t *testing.T) {
	var gotName string
	var gotArgs []string
	j := NewFileJournal("file-journal", true)
	j.run = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotName, gotArgs = name, args
		return []byte("Created 2026-10-18-morning-run.md\n"), nil, nil
	}

	e := entry.Entry{Title: "Morning Run", Content: "Ran 5k.", Tags: []string{"health"}}
	res, err := j.Persist(context.Background(), e)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if gotName != "file-journal" {
		t.Errorf("command = %q", gotName)
	}
	want := []string{"new", "morning-run.md", "Ran 5k.\n\nTags: #health"}
	if strings.Join(gotArgs, "\x00") != strings.Join(want, "\x00") {
		t.Errorf("args = %q, want %q", gotArgs, want)
	}
	if res.Output != "Created 2026-10-18-morning-run.md\n" {
		t.Errorf("Output = %q, want stdout verbatim", res.Output)
	}
	if res.Filename != "morning-run.md" {
		t.Errorf("Filename = %q", res.Filename)
	}
}

func TestPersist_FailureKeepsStderr(t *testing.T) {
	j := NewFileJournal("file-journal", false)
	j.run = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("error: journal directory not initialised\n"), errors.New("exit status 1")
	}

	_, err := j.Persist(context.Background(), entry.Entry{Title: "T", Content: "C"})
	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("err = %v, want ErrPersistFailed", err)
	}
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %T, want *PersistError", err)
	}
	if pe.Stderr != "error: journal directory not initialised\n" {
		t.Errorf("Stderr = %q", pe.Stderr)
	}
}

func TestPersist_RealCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-journal")
	body := "#!/bin/sh\n" +
		"if [ \"$2\" = \"fail.md\" ]; then echo 'disk full' >&2; exit 3; fi\n" +
		"printf 'saved %s' \"$2\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	j := NewFileJournal(script, true)
	res, err := j.Persist(context.Background(), entry.Entry{Title: "Good Day", Content: "C"})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if res.Output != "saved good-day.md" {
		t.Errorf("Output = %q", res.Output)
	}

	_, err = j.Persist(context.Background(), entry.Entry{Title: "fail", Content: "C"})
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PersistError", err)
	}
	if pe.ExitCode != 3 || pe.Stderr != "disk full\n" {
		t.Errorf("PersistError = %+v", pe)
	}
	if !errors.Is(err, ErrPersistFailed) {
		t.Error("not ErrPersistFailed")
	}
}

func TestPersist_MissingCommand(t *testing.T) {
	j := NewFileJournal("journal-ai-no-such-command", false)
	_, err := j.Persist(context.Background(), entry.Entry{Title: "T", Content: "C"})
	if !errors.Is(err, ErrPersistFailed) {
		t.Errorf("err = %v, want ErrPersistFailed", err)
	}
	if _, err := j.Check(); err == nil {
		t.Error("Check() found a command that does not exist")
	}
}

func TestDescribe(t *testing.T) {
	j := NewFileJournal("", true)
	got := j.Describe(entry.Entry{Title: "Test Title", Content: "It's fine", Tags: []string{"a"}})

	for _, want := range []string{
		"[DRY RUN] Would create:",
		"Title: test-title.md",
		"Content: It's fine\n\nTags: #a",
		`Command: file-journal 'new' 'test-title.md' 'It'\''s fine`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Describe() missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, ".md.md") {
		t.Error("extension doubled")
	}
}

func TestNewFileJournal_DefaultCommand(t *testing.T) {
	if c := NewFileJournal("", false).Command(); c != DefaultCommand {
		t.Errorf("Command() = %q, want %q", c, DefaultCommand)
	}
}
