// Package content reads chapter books from disk.
//
// A book is a YAML, JSON or CUE file with a chapters list and an optional
// ending, or a directory of such files where each file is a whole book or a
// single chapter. The months.json layout of the original page is accepted too.
//
// Every chapter is validated on its own against the embedded CUE #Chapter
// schema. A chapter that fails is dropped and logged; the rest still play.
// Optional fields with unusable values are removed and treated as absent.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/keepsake/internal/chapter"
)

// Extensions lists the book file extensions the repository reads.
var Extensions = []string{".yaml", ".yml", ".json", ".cue"}

// Drop records a chapter or file that was skipped.
type Drop struct {
	Source string
	// Index is the chapter position within Source, or -1 for a whole file.
	Index int
	Err   error
}

// Repair records optional fields removed from a chapter.
type Repair struct {
	Source string
	Index  int
	Fields []string
}

// LoadReport summarizes a load for `keepsake validate`.
type LoadReport struct {
	Sources  []string
	Loaded   int
	Dropped  []Drop
	Repaired []Repair
}

// OK reports whether nothing was dropped or repaired.
func (r LoadReport) OK() bool {
	return len(r.Dropped) == 0 && len(r.Repaired) == 0
}

// FileRepository loads a book from Path, a file or a directory.
type FileRepository struct {
	Path   string
	Logger *slog.Logger
}

// NewFileRepository creates a repository for path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{Path: path}
}

// FetchAll returns the surviving chapters in order.
func (r *FileRepository) FetchAll(ctx context.Context) ([]chapter.Chapter, error) {
	book, err := r.FetchBook(ctx)
	if err != nil {
		return nil, err
	}
	return book.Chapters, nil
}

// FetchBook returns the book with its surviving chapters.
func (r *FileRepository) FetchBook(ctx context.Context) (chapter.Book, error) {
	book, _, err := r.Load(ctx)
	return book, err
}

// Load reads the book and reports what was dropped. With zero surviving
// chapters it returns ErrNoChapters alongside the report.
func (r *FileRepository) Load(ctx context.Context) (chapter.Book, LoadReport, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var report LoadReport
	files, err := bookFiles(r.Path)
	if err != nil {
		return chapter.Book{}, report, err
	}

	v, err := NewValidator()
	if err != nil {
		return chapter.Book{}, report, err
	}

	var book chapter.Book
	haveEnding := false
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return chapter.Book{}, report, err
		}
		report.Sources = append(report.Sources, file)

		doc, err := readDocument(v, file)
		if err != nil {
			logger.Warn("content file dropped", "source", file, "error", err)
			report.Dropped = append(report.Dropped, Drop{Source: file, Index: -1, Err: err})
			continue
		}

		root := documentRoot(doc)
		if lookup(root, "months") != nil {
			root = legacyBook(root)
		}

		nodes := []*yaml.Node{root}
		if list := lookup(root, "chapters"); list != nil {
			if list.Kind != yaml.SequenceNode {
				err := &LoadError{Code: ErrCodeLayout, Source: file, Message: "chapters must be a list"}
				report.Dropped = append(report.Dropped, Drop{Source: file, Index: -1, Err: err})
				continue
			}
			nodes = list.Content
			if t := lookup(root, "title"); t != nil && book.Title == "" {
				book.Title = t.Value
			}
			if e := lookup(root, "ending"); e != nil && !haveEnding {
				if err := e.Decode(&book.Ending); err != nil {
					logger.Warn("ending ignored", "source", file, "error", err)
				} else {
					haveEnding = true
				}
			}
		}

		for i, n := range nodes {
			c, fixed, err := decodeChapter(v, file, n)
			if len(fixed) > 0 {
				logger.Warn("chapter fields ignored", "source", file, "index", i, "fields", fixed)
				report.Repaired = append(report.Repaired, Repair{Source: file, Index: i, Fields: fixed})
			}
			if err != nil {
				logger.Warn("chapter dropped", "source", file, "index", i, "error", err)
				report.Dropped = append(report.Dropped, Drop{Source: file, Index: i, Err: err})
				continue
			}
			book.Chapters = append(book.Chapters, c)
		}
	}

	sort.SliceStable(book.Chapters, func(i, j int) bool {
		return book.Chapters[i].Order < book.Chapters[j].Order
	})
	report.Loaded = len(book.Chapters)

	if len(book.Chapters) == 0 {
		return book, report, ErrNoChapters
	}
	logger.Info("content loaded", "path", r.Path, "chapters", len(book.Chapters), "dropped", len(report.Dropped))
	return book, report, nil
}

func decodeChapter(v *Validator, source string, n *yaml.Node) (chapter.Chapter, []string, error) {
	if n.Kind != yaml.MappingNode {
		return chapter.Chapter{}, nil, &LoadError{Code: ErrCodeLayout, Source: source, Message: "chapter must be a mapping"}
	}
	fixed := v.Repair(n)
	if err := v.Validate(source, n); err != nil {
		return chapter.Chapter{}, fixed, err
	}
	var c chapter.Chapter
	if err := n.Decode(&c); err != nil {
		return chapter.Chapter{}, fixed, &LoadError{Code: ErrCodeDecode, Source: source, Message: err.Error()}
	}
	return c, fixed, nil
}

// bookFiles resolves path to the list of files to read, sorted by name.
func bookFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Source: path, Message: err.Error()}
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Source: path, Message: err.Error()}
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeRead, Source: path, Message: "no book files found"}
	}
	return files, nil
}

func supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func readDocument(v *Validator, file string) (*yaml.Node, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Source: file, Message: err.Error()}
	}

	if strings.EqualFold(filepath.Ext(file), ".cue") {
		return v.CompileCUE(file, data)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Source: file, Message: err.Error()}
	}
	if doc.Kind == 0 {
		return nil, &LoadError{Code: ErrCodeLayout, Source: file, Message: "empty document"}
	}
	if root := documentRoot(&doc); root.Kind != yaml.MappingNode {
		return nil, &LoadError{Code: ErrCodeLayout, Source: file, Message: "expected a mapping at the top level"}
	}
	return &doc, nil
}

// IsLoadError reports whether err carries a LoadError with code.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// Describe formats a drop for reports.
func (d Drop) Describe() string {
	if d.Index < 0 {
		return fmt.Sprintf("%s: %v", d.Source, d.Err)
	}
	return fmt.Sprintf("%s[%d]: %v", d.Source, d.Index, d.Err)
}
