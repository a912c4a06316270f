package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	annotated := writeFixture(t, dir, "annotated.sql", "/* # sql-unit */\nselect 1\n")
	writeFixture(t, dir, "plain.sql", "select 1\n")
	writeFixture(t, dir, "notes.txt", "# sql-unit in a text file\n")

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	nested := writeFixture(t, sub, "deep.sql", "/* # sql-unit */\nselect 2\n")

	hidden := filepath.Join(dir, ".cache")
	require.NoError(t, os.MkdirAll(hidden, 0o755))
	writeFixture(t, hidden, "ignored.sql", "/* # sql-unit */\nselect 3\n")

	files, err := Discover([]string{dir})
	require.NoError(t, err)

	absAnnotated, _ := filepath.Abs(annotated)
	absNested, _ := filepath.Abs(nested)
	assert.Equal(t, []string{absAnnotated, absNested}, files)
}

func TestDiscover_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "a.sql", "/* # sql-unit */\nselect 1\n")

	files, err := Discover([]string{file})
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestDiscover_DeduplicatesOverlappingPaths(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "a.sql", "/* # sql-unit */\nselect 1\n")

	files, err := Discover([]string{dir, file})
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestDiscover_MissingPath(t *testing.T) {
	_, err := Discover([]string{"/no/such/path"})
	assert.Error(t, err)
}
