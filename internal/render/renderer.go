// Package render turns a crawled link graph into visual artifacts: a Graphviz
// DOT file for layout tools and a Markdown report with mermaid diagrams.
package render

import (
	"fmt"
	"io"
	"os"

	"github.com/alvmarrod/wiki-weaver/internal/memory"
	"github.com/sirupsen/logrus"
)

// Renderer consumes a finished graph
type Renderer interface {
	Render(g *memory.Graph) error
}

// WriterRenderer renders a graph into a stream
type WriterRenderer interface {
	Write(w io.Writer, g *memory.Graph) error
}

// FileRenderer writes a WriterRenderer's output to a file.
// An empty path disables it.
type FileRenderer struct {
	Path   string
	Format WriterRenderer
}

// NewFileRenderer creates a renderer writing to path
func NewFileRenderer(path string, format WriterRenderer) *FileRenderer {
	return &FileRenderer{Path: path, Format: format}
}

// Render writes the graph to the configured path
func (r *FileRenderer) Render(g *memory.Graph) error {
	if r.Path == "" {
		return nil
	}

	file, err := os.Create(r.Path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", r.Path, err)
	}

	if err := r.Format.Write(file, g); err != nil {
		file.Close()
		return fmt.Errorf("failed to render %s: %w", r.Path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", r.Path, err)
	}

	logrus.Infof("Graph rendered to %s", r.Path)
	return nil
}

// All runs every renderer, returning the first error after trying them all
func All(g *memory.Graph, renderers ...Renderer) error {
	var firstErr error
	for _, r := range renderers {
		if err := r.Render(g); err != nil {
			logrus.Errorf("Render failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
