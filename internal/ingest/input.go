// Package ingest reads configuration text from files, stdin or literal text
// and hands it to the scanner together with a filename hint.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// StdinName is the conventional path meaning "read standard input".
const StdinName = "-"

// MaxInputBytes bounds a single input. Larger inputs are rejected rather
// than truncated.
const MaxInputBytes = 10 << 20

var (
	ErrEmptyInput = errors.New("input is empty")
	ErrTooLarge   = fmt.Errorf("input exceeds %d bytes", MaxInputBytes)
)

// Input is one configuration document awaiting a scan.
type Input struct {
	// Name is the filename hint used for classification. It may be empty for
	// pasted text, or a synthetic name such as "s3://bucket" for inputs
	// fetched from a cloud API.
	Name string

	// Text is the raw configuration text.
	Text string
}

// FromText wraps literal text. Whitespace-only text is rejected.
func FromText(name, text string) (Input, error) {
	if strings.TrimSpace(text) == "" {
		return Input{}, ErrEmptyInput
	}
	return Input{Name: name, Text: text}, nil
}

// ReadFile reads path, or stdin when path is "-". The hint is the base name
// of the file so directory names never influence classification.
func ReadFile(path string, stdin io.Reader) (Input, error) {
	if path == StdinName {
		return ReadFrom("", stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return Input{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	in, err := ReadFrom(filepath.Base(path), f)
	if err != nil {
		return Input{}, fmt.Errorf("read %s: %w", path, err)
	}
	return in, nil
}

// ReadFrom drains r into an Input named name.
func ReadFrom(name string, r io.Reader) (Input, error) {
	if r == nil {
		return Input{}, ErrEmptyInput
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxInputBytes+1))
	if err != nil {
		return Input{}, err
	}
	if len(data) > MaxInputBytes {
		return Input{}, ErrTooLarge
	}
	return FromText(name, strings.TrimPrefix(string(data), "\ufeff"))
}

// Label returns Name, or "<stdin>" for unnamed inputs, for display.
func (in Input) Label() string {
	if in.Name == "" {
		return "<stdin>"
	}
	return in.Name
}

// Source produces inputs from somewhere other than a local file: a cloud
// API, a cluster object or a parsed Terraform module.
type Source interface {
	Inputs(ctx context.Context) ([]Input, error)
}
