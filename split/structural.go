package split

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

type element struct {
	tag     string
	start   int
	classes []string
	// false for void and self-closing elements, no close event will follow
	scoped bool
}

func (e *element) hasClass(name string) bool {
	return slices.Contains(e.classes, name)
}

type eventKind int

const (
	eventOpen eventKind = iota
	eventClose
	eventText
	eventOther
)

type event struct {
	kind  eventKind
	el    *element
	end   int
	blank bool
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// walk tokenizes document and reports element boundaries with exact byte
// offsets. Raw token bytes are never modified, offsets are obtained by
// accumulating raw token lengths.
func walk(doc []byte, fn func(ev event)) error {
	var (
		z     = html.NewTokenizer(bytes.NewReader(doc))
		stack []*element
		pos   int
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		}

		start := pos
		pos += len(z.Raw())

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			el := newElement(z, start)
			el.scoped = tt == html.StartTagToken && !voidElements[el.tag]
			fn(event{kind: eventOpen, el: el})
			if el.scoped {
				stack = append(stack, el)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			i := len(stack) - 1
			for i >= 0 && stack[i].tag != tag {
				i--
			}
			if i < 0 {
				// stray end tag
				fn(event{kind: eventOther})
				continue
			}
			// elements left open inside are closed where this end tag begins
			for j := len(stack) - 1; j > i; j-- {
				fn(event{kind: eventClose, el: stack[j], end: start})
			}
			fn(event{kind: eventClose, el: stack[i], end: pos})
			stack = stack[:i]
		case html.TextToken:
			fn(event{kind: eventText, blank: len(bytes.TrimSpace(z.Text())) == 0})
		default:
			fn(event{kind: eventOther})
		}
	}
}

func newElement(z *html.Tokenizer, start int) *element {
	name, more := z.TagName()
	el := &element{tag: string(name), start: start}
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		if string(key) == "class" {
			el.classes = strings.Fields(string(val))
		}
	}
	return el
}

// storyIllustration finds story element immediately followed (modulo
// whitespace) by sibling illustration element.
type storyIllustration struct {
	story        string
	illustration string
}

func (m *storyIllustration) Match(doc []byte) ([]Block, error) {
	var (
		blocks       []Block
		story        *element
		illustration *element
		// start of the story awaiting its illustration, -1 when none
		pending = -1
	)

	err := walk(doc, func(ev event) {
		switch {
		case illustration != nil:
			if ev.kind == eventClose && ev.el == illustration {
				blocks = append(blocks, newBlock(doc, len(blocks), pending, ev.end))
				illustration, pending = nil, -1
			}
			return
		case story != nil:
			if ev.kind == eventClose && ev.el == story {
				pending, story = story.start, nil
			}
			return
		case pending >= 0:
			if ev.kind == eventText && ev.blank {
				return
			}
			if ev.kind == eventOpen && ev.el.scoped && ev.el.hasClass(m.illustration) {
				illustration = ev.el
				return
			}
			// story without illustration is not a block
			pending = -1
		}
		if ev.kind == eventOpen && ev.el.scoped && ev.el.hasClass(m.story) {
			story = ev.el
		}
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// wrappedImage finds wrapper element which starts (modulo whitespace) with
// image and contains story element. Outermost wrapper wins. Wrapper either
// carries class or, when class is empty, has no class at all.
type wrappedImage struct {
	wrapper string
	class   string
	image   string
	story   string
}

func (m *wrappedImage) isWrapper(el *element) bool {
	if !el.scoped || el.tag != m.wrapper {
		return false
	}
	if len(m.class) == 0 {
		return len(el.classes) == 0
	}
	return el.hasClass(m.class)
}

func (m *wrappedImage) Match(doc []byte) ([]Block, error) {
	var (
		blocks    []Block
		opened    *element // wrapper waiting for its first child
		candidate *element
		seenStory bool
	)

	err := walk(doc, func(ev event) {
		if candidate != nil {
			switch {
			case ev.kind == eventOpen && ev.el.hasClass(m.story):
				seenStory = true
			case ev.kind == eventClose && ev.el == candidate:
				if seenStory {
					blocks = append(blocks, newBlock(doc, len(blocks), candidate.start, ev.end))
				}
				candidate, seenStory = nil, false
			}
			return
		}
		if opened != nil {
			if ev.kind == eventText && ev.blank {
				return
			}
			if ev.kind == eventOpen && ev.el.tag == m.image {
				candidate, opened = opened, nil
				return
			}
			opened = nil
		}
		if ev.kind == eventOpen && m.isWrapper(ev.el) {
			opened = ev.el
		}
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}
