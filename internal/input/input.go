// Package input collects the raw note text from arguments, a file or stdin.
package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/mattn/go-isatty"
)

// MaxSize bounds how much text is read from a file or stdin.
const MaxSize = 1 << 20 // 1MB

var (
	// ErrNoInput indicates no text was given and stdin is a terminal.
	ErrNoInput = errors.New("no input")

	// ErrTooLarge indicates the input exceeds MaxSize.
	ErrTooLarge = errors.New("input too large")
)

// Source lists the places input may come from, in order of precedence.
type Source struct {
	Args  []string
	File  string
	Stdin io.Reader
	// StdinTerminal is true when Stdin is an interactive terminal, in which
	// case it is not read.
	StdinTerminal bool
}

// Read returns the text from the first source that has any: positional
// arguments joined by spaces, then File, then Stdin.
func Read(src Source) (string, error) {
	if text := strings.Join(src.Args, " "); strings.TrimSpace(text) != "" {
		return text, nil
	}
	if src.File != "" {
		return ReadFile(src.File)
	}
	if src.Stdin != nil && !src.StdinTerminal {
		return readLimited(src.Stdin)
	}
	return "", ErrNoInput
}

// StdinIsTerminal reports whether os.Stdin is attached to a terminal.
func StdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ReadFile reads a text or markdown file, or extracts the text of a PDF.
func ReadFile(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()
	text, err := readLimited(f)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return text, nil
}

func readPDF(path string) (text string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	// The pdf reader panics on some malformed objects.
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("extracting text from %s: %v", path, p)
		}
	}()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}
	text, err = readLimited(plain)
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}
	return text, nil
}

func readLimited(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", err
	}
	if len(b) > MaxSize {
		return "", fmt.Errorf("more than %d bytes: %w", MaxSize, ErrTooLarge)
	}
	return string(b), nil
}
