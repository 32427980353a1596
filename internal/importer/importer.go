package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extracto-dev/extracto/internal/model"
)

// Batch is the result of parsing one statement.
type Batch struct {
	// Transactions are in source order.
	Transactions []model.ParsedTransaction

	// Ambiguous holds lines with a date but a single unsigned amount. They
	// are left for manual entry.
	Ambiguous []string

	// Skipped counts lines dropped as noise.
	Skipped int
}

// Parser converts a statement into a Batch.
type Parser interface {
	Parse(r io.Reader) (Batch, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a statement file in the inbox.
type FileInfo struct {
	Name string
	Path string
	Size int64

	// Kind is the lowercased file extension without the dot: "pdf" or "csv".
	Kind string
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&TextParser{})
	r.Register(&CSVParser{})
	return r
}

// processedDir is the inbox subdirectory for processed statements.
const processedDir = "processed"

var inboxKinds = map[string]bool{"pdf": true, "csv": true}

// Scan returns statement files (PDF or CSV) directly inside inboxDir.
func Scan(inboxDir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(inboxDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading inbox dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind := strings.TrimPrefix(strings.ToLower(filepath.Ext(e.Name())), ".")
		if !inboxKinds[kind] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(inboxDir, e.Name()),
			Size: info.Size(),
			Kind: kind,
		})
	}
	return files, nil
}

// MarkProcessed moves a file from the inbox to <inbox>/processed/.
func MarkProcessed(inboxDir, fileName string) error {
	src := filepath.Join(inboxDir, fileName)
	dstDir := filepath.Join(inboxDir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
