package input

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRead_ArgsWin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	os.WriteFile(path, []byte("from file"), 0o644)

	got, err := Read(Source{
		Args:  []string{"went", "running"},
		File:  path,
		Stdin: strings.NewReader("from stdin"),
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "went running" {
		t.Errorf("Read = %q, want args joined", got)
	}
}

func TestRead_FileBeforeStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	os.WriteFile(path, []byte("line one\nline two\n"), 0o644)

	got, err := Read(Source{Args: []string{"  "}, File: path, Stdin: strings.NewReader("from stdin")})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "line one\nline two\n" {
		t.Errorf("Read = %q", got)
	}
}

func TestRead_Stdin(t *testing.T) {
	got, err := Read(Source{Stdin: strings.NewReader("piped note")})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "piped note" {
		t.Errorf("Read = %q", got)
	}
}

func TestRead_TerminalStdinIgnored(t *testing.T) {
	_, err := Read(Source{Stdin: strings.NewReader("typed"), StdinTerminal: true})
	if !errors.Is(err, ErrNoInput) {
		t.Errorf("err = %v, want ErrNoInput", err)
	}
}

func TestRead_Nothing(t *testing.T) {
	if _, err := Read(Source{}); !errors.Is(err, ErrNoInput) {
		t.Errorf("err = %v, want ErrNoInput", err)
	}
}

func TestRead_TooLarge(t *testing.T) {
	big := strings.NewReader(strings.Repeat("a", MaxSize+1))
	if _, err := Read(Source{Stdin: big}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.md"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestReadFile_InvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.PDF")
	os.WriteFile(path, []byte("this is not a pdf"), 0o644)

	_, err := ReadFile(path)
	if err == nil || !strings.Contains(err.Error(), "PDF") {
		t.Errorf("err = %v, want PDF open error", err)
	}
}
