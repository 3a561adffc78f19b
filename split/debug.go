package split

import (
	"storypack/utils/debug"
)

// excerpt limits block text in plan dump.
const excerpt = 60

// String dumps partition plan, used in debug report.
func (p *Partition) String() string {
	tw := debug.NewTreeWriter(excerpt)
	tw.Line(0, "partition: %d blocks, %d parts", len(p.Blocks), len(p.Parts))
	tw.TextBlock(1, "header", p.Header)
	tw.TextBlock(1, "separator", p.Separator)
	tw.TextBlock(1, "footer", p.Footer)
	for _, part := range p.Parts {
		tw.Line(1, "part %d: %s blocks [%d, %d)", part.Index, part.Name, part.Range.From, part.Range.To)
		for _, b := range p.Blocks[part.Range.From:part.Range.To] {
			tw.Line(2, "block %d: bytes [%d, %d)", b.Index, b.Start, b.End)
			tw.TextBlock(3, "text", b.Text)
		}
	}
	return tw.String()
}
