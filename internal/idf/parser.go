package idf

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/louisleroy5/eplusrun/internal/version"
)

// Object is one parsed IDF object: its class name and ordered field values.
type Object struct {
	Class  string
	Fields []string
}

// ParseResult carries everything one parse pass produces. The object index
// and the IDD metadata are byproducts of the same pass; a Model refreshes
// them together so one invalidation costs one parse.
type ParseResult struct {
	// Objects indexes parsed objects by upper-cased class name.
	Objects map[string][]Object
	// IDDVersion is the version declared by the format descriptor used.
	IDDVersion version.Version
}

// Parser turns raw model text plus a format descriptor into a ParseResult.
// The full-fidelity IDD-aware parser is an external collaborator; TextParser
// below is the minimal built-in implementation.
type Parser interface {
	Parse(text string, iddPath string) (*ParseResult, error)
}

// TextParser is a schema-light IDF parser. It indexes objects from the raw
// text and reads only the version stamp out of the IDD. It is sufficient
// for orchestration: identity, version checks and object counting.
type TextParser struct{}

var iddVersionRe = regexp.MustCompile(`(?i)!IDD_Version\s+([0-9][0-9.]*)`)

func (TextParser) Parse(text string, iddPath string) (*ParseResult, error) {
	if iddPath == "" {
		return nil, ErrNoIDD
	}
	iddHead, err := os.ReadFile(iddPath)
	if err != nil {
		return nil, fmt.Errorf("reading format descriptor %s: %w", iddPath, err)
	}
	m := iddVersionRe.FindSubmatch(iddHead)
	if m == nil {
		return nil, fmt.Errorf("%s carries no IDD_Version stamp: %w", iddPath, ErrNoIDD)
	}
	iddVersion, err := version.Parse(string(m[1]))
	if err != nil {
		return nil, fmt.Errorf("parsing IDD version: %w", err)
	}

	objects := make(map[string][]Object)
	for _, block := range splitObjects(text) {
		fields := strings.Split(block, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		class := strings.ToUpper(fields[0])
		if class == "" {
			continue
		}
		objects[class] = append(objects[class], Object{Class: class, Fields: fields[1:]})
	}
	return &ParseResult{Objects: objects, IDDVersion: iddVersion}, nil
}

// splitObjects strips comments and returns one string per semicolon-
// terminated object.
func splitObjects(text string) []string {
	var sb strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if i := strings.Index(line, "!"); i >= 0 {
			line = line[:i]
		}
		sb.WriteString(line)
		sb.WriteString(" ")
	}
	var out []string
	for _, block := range strings.Split(sb.String(), ";") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}
