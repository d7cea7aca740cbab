package chunker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	long1 := strings.Repeat("a", 60)
	long2 := "  " + strings.Repeat("b", 51) + "  \n"
	corpus := long1 + "\n\n" + "short" + "\n\n" + long2

	chunks := Split(corpus)

	require.Len(t, chunks, 2)
	assert.Equal(t, long1, chunks[0])
	assert.Equal(t, strings.Repeat("b", 51), chunks[1])
}

func TestSplit_SingleQualifyingSection(t *testing.T) {
	corpus := strings.Repeat("x", 60) + "\n\n" + "hello"
	assert.Len(t, Split(corpus), 1)
}

func TestSplit_BoundaryIsExclusive(t *testing.T) {
	assert.Empty(t, Split(strings.Repeat("c", 50)))
	assert.Len(t, Split(strings.Repeat("c", 51)), 1)
}

func TestSplit_CountsCharactersNotBytes(t *testing.T) {
	// 30 two-byte runes: 60 bytes but only 30 characters.
	assert.Empty(t, Split(strings.Repeat("é", 30)))
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	assert.Empty(t, Split(""))
	assert.Empty(t, Split("\n\n\n\n   \n\n"))
}

func TestSplit_CRLF(t *testing.T) {
	a := strings.Repeat("a", 55)
	b := strings.Repeat("b", 55)
	chunks := Split(a + "\r\n\r\n" + b)
	assert.Equal(t, []string{a, b}, chunks)
}

func TestSplit_Properties(t *testing.T) {
	corpus := strings.Join([]string{
		"Sachin builds distributed systems and writes about retrieval augmented generation.",
		"tiny",
		"He studied computer science and enjoys teaching others how embeddings work in practice.",
		"",
		"   ",
		"Projects include a portfolio site with a chat assistant and a vector space visualizer.",
	}, "\n\n")

	segments := len(strings.Split(corpus, "\n\n"))
	first := Split(corpus)
	second := Split(corpus)

	assert.Equal(t, first, second)
	assert.LessOrEqual(t, len(first), segments)
	for _, c := range first {
		assert.Greater(t, utf8.RuneCountInString(strings.TrimSpace(c)), MinChunkLen)
	}
}

func TestReadCorpus(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("z", 70)+"\n\nnope"), 0o644))

	chunks, err := ReadCorpus(path)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)

	_, err = ReadCorpus(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestReadCorpus_OversizedSection(t *testing.T) {
	dir := t.TempDir()

	atLimit := filepath.Join(dir, "limit.txt")
	require.NoError(t, os.WriteFile(atLimit, []byte(strings.Repeat("a", MaxChunkBytes)), 0o644))
	chunks, err := ReadCorpus(atLimit)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)

	// Two-byte runes: 40000 characters but 80000 bytes.
	tooBig := filepath.Join(dir, "big.txt")
	content := strings.Repeat("k", 80) + "\n\n" + strings.Repeat("é", 40000)
	require.NoError(t, os.WriteFile(tooBig, []byte(content), 0o644))
	_, err = ReadCorpus(tooBig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "section 1 is 80000 bytes")
}
