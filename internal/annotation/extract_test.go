package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRegions_SingleRegion(t *testing.T) {
	src := `/*
  # sql-unit
  sql-unit.mock "x":
    type: int
*/
select 1
`
	regions, err := ExtractRegions(src)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, 1, regions[0].Line)
	assert.Equal(t, "sql-unit.mock \"x\":\n  type: int", regions[0].Content)
}

func TestExtractRegions_IgnoresPlainComments(t *testing.T) {
	src := `/* just a comment */
select 1
/* another
   multi-line comment */
`
	regions, err := ExtractRegions(src)
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestExtractRegions_Disabled(t *testing.T) {
	src := `/*
  # sql-unit.disabled
  sql-unit.test "retired":
    expected: ok
*/
select 1
`
	regions, err := ExtractRegions(src)
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestExtractRegions_MultipleRegions(t *testing.T) {
	src := `/*
  # sql-unit
  sql-unit.mock "a":
    type: int
*/
select {{ a }}
/*
  # sql-unit
  sql-unit.mock "b":
    type: string
*/
`
	regions, err := ExtractRegions(src)
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, 1, regions[0].Line)
	assert.Equal(t, 7, regions[1].Line)
}

func TestExtractRegions_Unterminated(t *testing.T) {
	src := "select 1\n/*\n  # sql-unit\n"
	_, err := ExtractRegions(src)
	require.Error(t, err)

	var mae *MalformedAnnotationError
	require.ErrorAs(t, err, &mae)
	assert.Equal(t, 2, mae.Line)
}

func TestExtractRegions_DedentMixedIndent(t *testing.T) {
	src := "/*\n    # sql-unit\n    key: 1\n      nested: 2\n*/\n"
	regions, err := ExtractRegions(src)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "key: 1\n  nested: 2", regions[0].Content)
}
