package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/keepsake/internal/chapter"
	"github.com/roach88/keepsake/internal/content"
	"github.com/roach88/keepsake/internal/sequence"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool              `json:"valid"`
	Sources     []string          `json:"sources"`
	Loaded      int               `json:"loaded"`
	ContentHash string            `json:"content_hash,omitempty"`
	Dropped     []ValidationError `json:"dropped,omitempty"`
	Repaired    []RepairNotice    `json:"repaired,omitempty"`
	Warnings    []ChapterWarning  `json:"warnings,omitempty"`
}

// ValidationError describes a chapter or file that was dropped.
type ValidationError struct {
	Source  string `json:"source"`
	Index   int    `json:"index"` // -1 for a whole file
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// RepairNotice lists optional fields removed from a chapter.
type RepairNotice struct {
	Source string   `json:"source"`
	Index  int      `json:"index"`
	Fields []string `json:"fields"`
}

// ChapterWarning flags a loaded chapter that cannot be played through.
type ChapterWarning struct {
	Chapter int    `json:"chapter"` // position in play order
	Order   int    `json:"order"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [book]",
		Short: "Check a book against the chapter schema",
		Long: `Load a book the way play does and report what would be dropped or repaired.

Chapters failing the schema are dropped; unusable optional fields are removed.
Chapters that load but cannot be played through (a question without answers)
are reported as warnings. Repairs and warnings alone do not fail validation.

Exit codes:
  0 - Every chapter loaded
  1 - Chapters were dropped or none survived
  2 - Command error (book not found)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	book, err := bookPath(opts.config().Book, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repo := content.NewFileRepository(book)
	repo.Logger = opts.logger()
	loaded, report, loadErr := repo.Load(ctx)
	if loadErr != nil && !errors.Is(loadErr, content.ErrNoChapters) {
		_ = formatter.Error(codeFor(loadErr), loadErr.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read book", loadErr)
	}

	result := buildValidationResult(report)
	formatter.VerboseLog("read %d source(s) from %s", len(report.Sources), book)

	if loadErr == nil {
		hash, err := chapter.ContentHash(loaded.Chapters)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to hash chapters", err)
		}
		result.ContentHash = hash
		result.Warnings = chapterWarnings(loaded.Chapters)
	}

	if formatter.JSON() {
		if err := outputValidateJSON(formatter, result, loadErr); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, result)
	}

	switch {
	case loadErr != nil:
		return NewExitError(ExitFailure, "no chapters survived validation")
	case len(result.Dropped) > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d chapter(s) dropped", len(result.Dropped)))
	}
	return nil
}

func buildValidationResult(report content.LoadReport) ValidationResult {
	result := ValidationResult{
		Valid:   report.Loaded > 0 && len(report.Dropped) == 0,
		Sources: report.Sources,
		Loaded:  report.Loaded,
	}
	if result.Sources == nil {
		result.Sources = []string{}
	}
	for _, d := range report.Dropped {
		ve := ValidationError{
			Source:  d.Source,
			Index:   d.Index,
			Code:    codeFor(d.Err),
			Message: d.Err.Error(),
		}
		var le *content.LoadError
		if errors.As(d.Err, &le) {
			ve.Message = le.Message
			if le.Pos.IsValid() {
				ve.Line = le.Pos.Line()
			}
		}
		result.Dropped = append(result.Dropped, ve)
	}
	for _, r := range report.Repaired {
		result.Repaired = append(result.Repaired, RepairNotice{Source: r.Source, Index: r.Index, Fields: r.Fields})
	}
	return result
}

func chapterWarnings(chapters []chapter.Chapter) []ChapterWarning {
	var warnings []ChapterWarning
	for i, c := range chapters {
		for _, msg := range sequence.Warnings(c) {
			warnings = append(warnings, ChapterWarning{Chapter: i, Order: c.Order, Title: c.Title, Message: msg})
		}
	}
	return warnings
}

// codeFor returns the content error code of err, or ErrCodeGeneric.
func codeFor(err error) string {
	var le *content.LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}

func outputValidateJSON(f *OutputFormatter, result ValidationResult, loadErr error) error {
	switch {
	case loadErr != nil:
		return f.Failure(ErrCodeNoChapters, loadErr.Error(), result)
	case len(result.Dropped) > 0:
		return f.Failure(ErrCodeContent, fmt.Sprintf("%d chapter(s) dropped", len(result.Dropped)), result)
	}
	return f.Success(result)
}

func outputValidateText(f *OutputFormatter, result ValidationResult) {
	w := f.Writer

	mark := "✓"
	if !result.Valid {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %d chapter(s) loaded from %s\n", mark, result.Loaded, strings.Join(result.Sources, ", "))
	if result.ContentHash != "" {
		fmt.Fprintf(w, "  content hash: %s\n", result.ContentHash)
	}

	for _, d := range result.Dropped {
		loc := d.Source
		if d.Index >= 0 {
			loc = fmt.Sprintf("%s[%d]", d.Source, d.Index)
		}
		if d.Line > 0 {
			loc = fmt.Sprintf("%s (line %d)", loc, d.Line)
		}
		fmt.Fprintf(w, "  dropped %s: %s: %s\n", loc, d.Code, d.Message)
	}
	for _, r := range result.Repaired {
		fmt.Fprintf(w, "  repaired %s[%d]: removed %s\n", r.Source, r.Index, strings.Join(r.Fields, ", "))
	}
	for _, wr := range result.Warnings {
		fmt.Fprintf(w, "  warning chapter %d (order %d): %s\n", wr.Chapter+1, wr.Order, wr.Message)
	}
	if result.Loaded == 0 {
		fmt.Fprintln(w, "  no chapters survived; play would fail")
	}
}
