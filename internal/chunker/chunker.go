package chunker

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// MinChunkLen is the exclusive lower bound on a chunk's trimmed length, in characters.
const MinChunkLen = 50

// MaxChunkBytes is the largest chunk the vector store can hold, in UTF-8 bytes.
const MaxChunkBytes = 65535

// Split cuts raw corpus text into retrievable sections. Sections are
// separated by blank lines; each is trimmed and kept only when its trimmed
// length exceeds MinChunkLen. Order follows the input.
func Split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	sections := lo.Map(strings.Split(text, "\n\n"), func(seg string, _ int) string {
		return strings.TrimSpace(seg)
	})
	return lo.Filter(sections, func(seg string, _ int) bool {
		return utf8.RuneCountInString(seg) > MinChunkLen
	})
}

// ReadCorpus loads the corpus file and splits it. A section too large to store
// fails the whole read.
func ReadCorpus(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
	}
	sections := Split(string(data))
	for i, sec := range sections {
		if len(sec) > MaxChunkBytes {
			return nil, fmt.Errorf("corpus %s section %d is %d bytes, limit is %d; split it with blank lines", path, i, len(sec), MaxChunkBytes)
		}
	}
	return sections, nil
}
