package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/siherrmann/docqa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte(content), 0600)
	require.NoError(t, err)
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Load text file with page breaks", func(t *testing.T) {
		path := writeTestFile(t, "report.txt", "first page text\fsecond page text\fthird page text")

		doc, err := Load(path)
		require.NoError(t, err)
		require.NotNil(t, doc)

		assert.Equal(t, "report", doc.Title)
		assert.Equal(t, 3, doc.PageCount)
		require.Len(t, doc.Pages, 3)
		assert.Equal(t, 1, doc.Pages[0].Number)
		assert.Equal(t, "first page text", doc.Pages[0].Text)
		assert.Equal(t, 3, doc.Pages[2].Number)
		assert.Equal(t, "third page text", doc.Pages[2].Text)
		assert.NotEmpty(t, doc.ContentHash)
	})

	t.Run("Load is idempotent", func(t *testing.T) {
		path := writeTestFile(t, "report.txt", "page one\fpage two")

		first, err := Load(path)
		require.NoError(t, err)
		second, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, first.ContentHash, second.ContentHash, "Expected identical hash for unchanged file")
		assert.Equal(t, first.Pages, second.Pages, "Expected identical pages for unchanged file")
	})

	t.Run("Different content yields a different hash", func(t *testing.T) {
		first, err := Load(writeTestFile(t, "a.txt", "some content"))
		require.NoError(t, err)
		second, err := Load(writeTestFile(t, "b.txt", "other content"))
		require.NoError(t, err)

		assert.NotEqual(t, first.ContentHash, second.ContentHash)
	})

	t.Run("Missing file returns NotFoundError", func(t *testing.T) {
		_, err := Load("/does/not/exist.txt")
		require.Error(t, err)

		var notFound *model.NotFoundError
		assert.ErrorAs(t, err, &notFound, "Expected a NotFoundError")
	})

	t.Run("Unsupported extension returns UnreadableError", func(t *testing.T) {
		path := writeTestFile(t, "report.docx", "binary blob")

		_, err := Load(path)
		require.Error(t, err)

		var unreadable *model.UnreadableError
		assert.ErrorAs(t, err, &unreadable, "Expected an UnreadableError")
	})

	t.Run("Broken PDF returns UnreadableError", func(t *testing.T) {
		path := writeTestFile(t, "broken.pdf", "not actually a pdf")

		_, err := Load(path)
		require.Error(t, err)

		var unreadable *model.UnreadableError
		assert.ErrorAs(t, err, &unreadable, "Expected an UnreadableError for a broken PDF")
	})
}

func TestCleanText(t *testing.T) {
	t.Run("Collapses whitespace runs", func(t *testing.T) {
		assert.Equal(t, "a b c", CleanText("a \t b\n\n  c"))
	})

	t.Run("Trims surrounding whitespace", func(t *testing.T) {
		assert.Equal(t, "text", CleanText("  text  \n"))
	})

	t.Run("Keeps non-latin text intact", func(t *testing.T) {
		assert.Equal(t, "탄소 중립 목표", CleanText("탄소   중립\n목표"))
	})
}
