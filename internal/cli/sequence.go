package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/keepsake/internal/chapter"
	"github.com/roach88/keepsake/internal/content"
	"github.com/roach88/keepsake/internal/sequence"
)

// ChapterPlan is the step list of one chapter.
type ChapterPlan struct {
	Index  int      `json:"index"`
	Order  int      `json:"order"`
	Month  string   `json:"month_label"`
	Title  string   `json:"title,omitempty"`
	Branch string   `json:"branch"`
	Game   string   `json:"game"`
	Steps  []string `json:"steps"`
	Images int      `json:"images"`
	Cover  string   `json:"cover,omitempty"`
}

// NewSequenceCommand creates the sequence command.
func NewSequenceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence [book]",
		Short: "Show the steps each chapter plays",
		Long: `Print the step list every chapter of a book will play, in play order.

Examples:
  keepsake sequence ./book.yaml
  keepsake sequence ./book --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSequence(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runSequence(opts *RootOptions, args []string, cmd *cobra.Command) error {
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
	chapters, err := repo.FetchAll(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load book", err)
	}

	plans := make([]ChapterPlan, len(chapters))
	for i, c := range chapters {
		plans[i] = planFor(i, c)
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return f.Success(plans)
	}

	w := cmd.OutOrStdout()
	for _, p := range plans {
		name := p.Month
		if p.Title != "" {
			name = fmt.Sprintf("%s - %s", p.Month, p.Title)
		}
		fmt.Fprintf(w, "%d. %s [%s, %s]\n", p.Index+1, name, p.Branch, p.Game)
		fmt.Fprintf(w, "   %s\n", strings.Join(p.Steps, " > "))
		if p.Images > 0 {
			fmt.Fprintf(w, "   %d image(s), cover %s\n", p.Images, p.Cover)
		}
	}
	return nil
}

func planFor(i int, c chapter.Chapter) ChapterPlan {
	p := ChapterPlan{
		Index:  i,
		Order:  c.Order,
		Month:  c.MonthLabel,
		Title:  c.Title,
		Branch: string(sequence.BranchFor(c)),
		Game:   string(chapter.ResolveKind(c.MinigameKind)),
		Steps:  sequence.Build(c).Names(),
		Images: len(chapter.SupportedImages(c.Images)),
	}
	if cover, ok := c.CoverImage(); ok {
		p.Cover = cover
	}
	return p
}
