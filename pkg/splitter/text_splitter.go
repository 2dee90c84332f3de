package splitter

import (
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

// TextSplitter wraps the langchaingo text splitter
type TextSplitter struct {
	splitter  textsplitter.TextSplitter
	chunkSize int
}

// NewRecursiveCharacterTextSplitter creates a new recursive character text splitter.
// A non-positive chunkSize disables splitting.
func NewRecursiveCharacterTextSplitter(chunkSize, chunkOverlap int) *TextSplitter {
	if chunkSize <= 0 {
		return &TextSplitter{}
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	ts := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)

	return &TextSplitter{splitter: ts, chunkSize: chunkSize}
}

// SplitText splits text into chunks
func (ts *TextSplitter) SplitText(text string) ([]string, error) {
	if ts == nil || ts.splitter == nil {
		return []string{text}, nil
	}
	return ts.splitter.SplitText(text)
}

// Head returns the longest prefix of text built from whole chunks that fits in the chunk
// size. Text that already fits is returned as is. When whole chunks fill less than half of
// the budget the text is cut at the rune limit instead.
func (ts *TextSplitter) Head(text string) string {
	if ts == nil || ts.splitter == nil || utf8.RuneCountInString(text) <= ts.chunkSize {
		return text
	}
	chunks, err := ts.splitter.SplitText(text)
	if err != nil || len(chunks) == 0 {
		return truncateRunes(text, ts.chunkSize)
	}

	end, from := 0, 0
	for _, c := range chunks {
		i := strings.Index(text[from:], c)
		if i < 0 {
			break
		}
		chunkEnd := from + i + len(c)
		if utf8.RuneCountInString(text[:chunkEnd]) > ts.chunkSize {
			break
		}
		end = chunkEnd
		// overlapping chunks start after the previous chunk's start
		from += i + 1
	}
	// chunk boundaries that leave most of the budget unused fall back to a plain cut
	if utf8.RuneCountInString(text[:end]) < ts.chunkSize/2 {
		return truncateRunes(text, ts.chunkSize)
	}
	return text[:end]
}

func truncateRunes(text string, n int) string {
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
