package idf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source is where a model's text comes from. Implementations are InlineText
// for in-memory buffers, FilePath for on-disk files, and *Model itself for
// an already-loaded handle (its canonical serialized form).
type Source interface {
	// Content returns the model's full current byte content.
	Content() ([]byte, error)
	// Name returns a short identity for logs and error messages.
	Name() string
}

// InlineText is a model held entirely in memory.
type InlineText struct {
	// Label names the buffer in logs; optional.
	Label string
	Text  string
}

func (s InlineText) Content() ([]byte, error) { return []byte(s.Text), nil }

func (s InlineText) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "in-memory model"
}

// FilePath is a model stored on disk.
type FilePath string

func (s FilePath) Content() ([]byte, error) {
	b, err := os.ReadFile(string(s))
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", s, err)
	}
	return b, nil
}

func (s FilePath) Name() string { return filepath.Base(string(s)) }

// Path returns the on-disk location of src, or "" for in-memory sources.
func Path(src Source) string {
	if fp, ok := src.(FilePath); ok {
		return string(fp)
	}
	return ""
}

// DefaultText returns the minimal valid model text for the given dotted
// version string, used when a Model is created without a source.
func DefaultText(dotted string) string {
	return strings.Join([]string{"VERSION,", "    " + dotted + ";", ""}, "\n")
}
