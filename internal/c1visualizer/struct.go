// Package c1visualizer parses compiler pass dumps in the C1visualizer text
// format into named passes.
package c1visualizer

import (
	"fmt"
	"path/filepath"
)

// Pass is the body of one cfg block. Name is the method name and the pass
// label joined by a space.
type Pass struct {
	Name      string
	Body      []string
	StartLine int // 1-based line of Body[0]
}

// File is a parsed dump.
type File struct {
	BaseName    string
	FullName    string
	Passes      []*Pass
	ISAFeatures map[string]bool
	Lines       []string // raw text, echoed on failure
}

// FindPass returns the first pass with the given name.
func (f *File) FindPass(name string) *Pass {
	for _, p := range f.Passes {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// DuplicatePasses lists pass names that occur more than once, in dump order.
func (f *File) DuplicatePasses() []string {
	seen := make(map[string]int, len(f.Passes))
	var dups []string
	for _, p := range f.Passes {
		seen[p.Name]++
		if seen[p.Name] == 2 {
			dups = append(dups, p.Name)
		}
	}
	return dups
}

func newFile(name string) *File {
	return &File{
		BaseName:    filepath.Base(name),
		FullName:    name,
		ISAFeatures: map[string]bool{},
	}
}

// ParseError is a fatal structural problem in a dump.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}
