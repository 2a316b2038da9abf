package content

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/keepsake/internal/chapter"
)

func quiet(path string) *FileRepository {
	return &FileRepository{Path: path, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadYAMLBook(t *testing.T) {
	book, report, err := quiet("testdata/book.yaml").Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Our Year", book.Title)
	require.Len(t, book.Chapters, 3)
	assert.Equal(t, "New beginnings", book.Chapters[0].Title, "sorted by order")
	assert.Equal(t, "Snow day", book.Chapters[1].Title)
	assert.Equal(t, "Broken on purpose", book.Chapters[2].Title)

	snow := book.Chapters[1]
	assert.Equal(t, []string{"b", "a"}, snow.Answers.Keys(), "authored answer order kept")
	assert.Equal(t, chapter.KindMemory, snow.MinigameKind)

	assert.Empty(t, book.Chapters[2].Images, "malformed images treated as absent")

	assert.Equal(t, "Open your gift", book.Ending.ButtonText)
	assert.Equal(t, 3, report.Loaded)
	require.Len(t, report.Dropped, 1)
	assert.Equal(t, 3, report.Dropped[0].Index)
	assert.True(t, IsLoadError(report.Dropped[0].Err, ErrCodeSchema))
	require.Len(t, report.Repaired, 1)
	assert.Equal(t, []string{"images"}, report.Repaired[0].Fields)
	assert.False(t, report.OK())
}

func TestLoadLegacyMonths(t *testing.T) {
	book, _, err := quiet("testdata/months.json").Load(context.Background())
	require.NoError(t, err)
	require.Len(t, book.Chapters, 2)

	march := book.Chapters[0]
	assert.Equal(t, 1, march.Order)
	assert.Equal(t, "March 2024", march.MonthLabel)
	assert.Equal(t, "Spring", march.Title)
	assert.Equal(t, []string{"image/march.jpg"}, march.Images)
	assert.Equal(t, "y", march.CorrectKey)
	assert.Equal(t, []string{"x", "y"}, march.Answers.Keys())
	assert.Equal(t, chapter.KindFlowers, march.MinigameKind)

	assert.False(t, book.Chapters[1].HasQuestion())
	assert.Equal(t, "Happy anniversary", book.Ending.Message)
	assert.Equal(t, "#gift", book.Ending.ButtonLink)
}

func TestLoadCUEBook(t *testing.T) {
	book, _, err := quiet("testdata/book.cue").Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "From CUE", book.Title)
	require.Len(t, book.Chapters, 2)
	assert.Equal(t, "Two", book.Chapters[1].Title)
	assert.Equal(t, "second", book.Chapters[1].Note)
	assert.Equal(t, []string{"cover.jpg"}, book.Chapters[0].Images)
	assert.Equal(t, chapter.KindStars, book.Chapters[0].MinigameKind)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "02-feb.yaml", "order: 2\ntitle: Feb\n")
	writeFile(t, dir, "01-jan.json", `{"order": 1, "title": "Jan"}`)
	writeFile(t, dir, "03-bad.yaml", "order: [\n")
	writeFile(t, dir, "notes.txt", "ignored")

	repo := quiet(dir)
	book, report, err := repo.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, book.Chapters, 2)
	assert.Equal(t, "Jan", book.Chapters[0].Title)
	assert.Len(t, report.Sources, 3)
	require.Len(t, report.Dropped, 1)
	assert.Equal(t, -1, report.Dropped[0].Index)
	assert.True(t, IsLoadError(report.Dropped[0].Err, ErrCodeParse))
	assert.Contains(t, report.Dropped[0].Describe(), "03-bad.yaml")

	chapters, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, chapters, 2)
}

func TestUnknownFieldDropsChapter(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "book.yaml", "chapters:\n  - order: 1\n    titel: typo\n  - order: 2\n")

	book, report, err := quiet(p).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, book.Chapters, 1)
	assert.Equal(t, 2, book.Chapters[0].Order)
	require.Len(t, report.Dropped, 1)
}

func TestNullOptionalFieldsIgnored(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "book.yaml", "chapters:\n  - order: 1\n    note:\n    answers:\n    images: [a.jpg]\n")

	book, report, err := quiet(p).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, book.Chapters, 1)
	assert.Equal(t, []string{"a.jpg"}, book.Chapters[0].Images)
	require.Len(t, report.Repaired, 1)
	assert.Equal(t, []string{"answers", "note"}, report.Repaired[0].Fields)
}

func TestNoChapters(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "book.yaml", "chapters:\n  - title: no order\n")

	_, report, err := quiet(p).Load(context.Background())
	assert.ErrorIs(t, err, ErrNoChapters)
	assert.Equal(t, 0, report.Loaded)

	_, err = quiet(p).FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrNoChapters)
}

func TestMissingPath(t *testing.T) {
	_, _, err := quiet(filepath.Join(t.TempDir(), "nope.yaml")).Load(context.Background())
	assert.True(t, IsLoadError(err, ErrCodeRead))
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := quiet("testdata/book.yaml").Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCUEChapterFailsSchema(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "book.cue", "chapters: [{order: -1}]\n")

	_, report, err := quiet(p).Load(context.Background())
	assert.ErrorIs(t, err, ErrNoChapters)
	require.Len(t, report.Dropped, 1)
	assert.True(t, IsLoadError(report.Dropped[0].Err, ErrCodeSchema))
}

func TestValidatorRepair(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	n := mustNode(t, "order: 1\ncaption: 7\nquestion: ok\n")
	fixed := v.Repair(n)
	assert.Equal(t, []string{"caption"}, fixed)
	assert.NoError(t, v.Validate("inline", n))
}

func TestValidatorRepairEmptyAnswerKey(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	n := mustNode(t, "order: 1\nquestion: ok\nanswers:\n  \"\": blank\n  b: fine\n")
	assert.Equal(t, []string{"answers"}, v.Repair(n))
	assert.NoError(t, v.Validate("inline", n))

	n = mustNode(t, "order: 1\nquestion: ok\nanswers:\n  a: one\n  b: two\n")
	assert.Empty(t, v.Repair(n))
}

func mustNode(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	return documentRoot(&doc)
}
