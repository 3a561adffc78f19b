// Package split locates story blocks in a monolithic page and partitions them
// into part files small enough for static hosting.
package split

import (
	"fmt"
	"regexp"
	"strings"

	"storypack/config"
)

// Block is a byte exact fragment of the source document holding one story.
type Block struct {
	Index int
	Start int
	End   int
	Text  string
}

// Matcher locates story blocks in the document. Blocks are returned in
// document order and never overlap.
type Matcher interface {
	Match(doc []byte) ([]Block, error)
}

// NewMatcher creates matcher for the configured layout.
func NewMatcher(cfg *config.SplitConfig) (Matcher, error) {
	switch cfg.Layout {
	case config.LayoutStoryIllustration:
		return &storyIllustration{
			story:        cfg.StoryClass,
			illustration: cfg.IllustrationClass,
		}, nil
	case config.LayoutWrappedImage:
		return &wrappedImage{
			wrapper: strings.ToLower(cfg.WrapperTag),
			class:   cfg.WrapperClass,
			image:   strings.ToLower(cfg.ImageTag),
			story:   cfg.StoryClass,
		}, nil
	case config.LayoutRegex:
		return newRegexMatcher(cfg.Pattern)
	default:
		return nil, fmt.Errorf("unsupported layout %s", cfg.Layout)
	}
}

type regexMatcher struct {
	re *regexp.Regexp
}

func newRegexMatcher(pattern string) (*regexMatcher, error) {
	if !strings.HasPrefix(pattern, "(?s)") {
		// blocks always span multiple lines
		pattern = "(?s)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("unable to compile block pattern: %w", err)
	}
	return &regexMatcher{re: re}, nil
}

func (m *regexMatcher) Match(doc []byte) ([]Block, error) {
	locs := m.re.FindAllIndex(doc, -1)
	blocks := make([]Block, 0, len(locs))
	for _, loc := range locs {
		if loc[0] == loc[1] {
			continue
		}
		blocks = append(blocks, newBlock(doc, len(blocks), loc[0], loc[1]))
	}
	return blocks, nil
}

func newBlock(doc []byte, index, start, end int) Block {
	return Block{Index: index, Start: start, End: end, Text: string(doc[start:end])}
}
