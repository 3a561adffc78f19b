// Package inject splices flipbook style and script into a page.
package inject

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
)

//go:embed flipbook.css
var DefaultStyle []byte

//go:embed flipbook.js
var DefaultScript []byte

// Fragments holds what to inject and where. Style and Script are raw CSS and
// JS, they are wrapped into elements by Inject.
type Fragments struct {
	Style      []byte
	Script     []byte
	HeadMarker string
	BodyMarker string
}

// Result is the modified document and non fatal problems.
type Result struct {
	Doc      []byte
	Warnings []string
}

type insertion struct {
	pos  int
	data []byte
}

// Inject puts style element before first head marker and script element
// before first body marker. Nothing else in the document is changed. When
// marker is missing the fragment is appended at the end, style first.
func Inject(doc []byte, frags Fragments) Result {
	var (
		res      Result
		inserts  []insertion
		trailing [][]byte
	)

	place := func(marker string, data []byte, what string) {
		if len(data) == 0 {
			return
		}
		if pos := bytes.Index(doc, []byte(marker)); len(marker) > 0 && pos >= 0 {
			inserts = append(inserts, insertion{pos: pos, data: data})
			return
		}
		res.Warnings = append(res.Warnings, fmt.Sprintf("marker %q not found, appending %s to the end of document", marker, what))
		trailing = append(trailing, data)
	}
	place(frags.HeadMarker, styleElement(frags.Style), "style")
	place(frags.BodyMarker, scriptElement(frags.Script), "script")

	// stable: style stays before script when both go to the same place
	sort.SliceStable(inserts, func(i, j int) bool { return inserts[i].pos < inserts[j].pos })

	out := bytes.NewBuffer(make([]byte, 0, len(doc)+len(frags.Style)+len(frags.Script)+64))
	prev := 0
	for _, ins := range inserts {
		out.Write(doc[prev:ins.pos])
		out.Write(ins.data)
		prev = ins.pos
	}
	out.Write(doc[prev:])
	for _, data := range trailing {
		out.Write(data)
	}
	res.Doc = out.Bytes()
	return res
}

func styleElement(css []byte) []byte {
	if len(css) == 0 {
		return nil
	}
	return wrap(`<style id="flipbook-styles">`, css, `</style>`)
}

func scriptElement(js []byte) []byte {
	if len(js) == 0 {
		return nil
	}
	return wrap(`<script>`, js, `</script>`)
}

func wrap(open string, content []byte, closing string) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("\n" + open + "\n")
	buf.Write(content)
	if !bytes.HasSuffix(content, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString(closing + "\n")
	return buf.Bytes()
}
