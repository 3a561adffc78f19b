package split

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"storypack/config"
	"storypack/loader"
)

// Part is a single output file: contiguous range of blocks.
type Part struct {
	Index int // 1-based
	Name  string
	Range Range
}

// Partition is complete description of the split: everything needed to
// render every part.
type Partition struct {
	Header    string
	Footer    string
	Separator string
	Blocks    []Block
	Parts     []Part
}

// NewPartition matches blocks in the document and assigns them to parts.
// When no blocks are found partition has single empty part.
func NewPartition(doc []byte, cfg *config.SplitConfig, base string, log *zap.Logger) (*Partition, error) {
	m, err := NewMatcher(cfg)
	if err != nil {
		return nil, err
	}
	blocks, err := m.Match(doc)
	if err != nil {
		return nil, fmt.Errorf("unable to locate story blocks: %w", err)
	}

	ranges, err := Plan(len(blocks), cfg.PageSize, cfg.MaxParts)
	if err != nil {
		return nil, err
	}

	p := &Partition{
		Footer:    cfg.Footer,
		Separator: cfg.Separator,
		Blocks:    blocks,
	}
	if len(blocks) > 0 {
		p.Header = string(doc[:blocks[0].Start])
	} else {
		log.Warn("No story blocks found, producing single empty part", zap.Stringer("layout", cfg.Layout))
		ranges = []Range{{}}
	}

	namer, err := loader.NewNamer(cfg.PartNameTemplate, cfg.FileNameTransliterate)
	if err != nil {
		return nil, err
	}
	names, err := namer.Names(len(ranges), base, cfg.Layout.String())
	if err != nil {
		return nil, err
	}

	p.Parts = make([]Part, 0, len(ranges))
	for i, r := range ranges {
		p.Parts = append(p.Parts, Part{Index: i + 1, Name: names[i], Range: r})
	}
	return p, nil
}

// Names returns part file names in order, this is loader manifest.
func (p *Partition) Names() []string {
	names := make([]string, 0, len(p.Parts))
	for _, part := range p.Parts {
		names = append(names, part.Name)
	}
	return names
}

// Reserve makes sure none of the parts is named as file written next to them,
// loader page would silently replace the part otherwise.
func (p *Partition) Reserve(name string) error {
	for _, part := range p.Parts {
		if part.Name == name {
			return fmt.Errorf("%w: part %d is named as loader page %q", loader.ErrDuplicateName, part.Index, name)
		}
	}
	return nil
}

// Render produces content of the part file.
func (p *Partition) Render(part Part) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(p.Header)
	for i, b := range p.Blocks[part.Range.From:part.Range.To] {
		if i > 0 {
			buf.WriteString(p.Separator)
		}
		buf.WriteString(b.Text)
	}
	buf.WriteString(p.Footer)
	return buf.Bytes()
}

// Write renders every part into directory dir overwriting existing files and
// returns full names of files written. Already written files are left in place
// on error.
func (p *Partition) Write(ctx context.Context, dir string, log *zap.Logger) ([]string, error) {
	files := make([]string, 0, len(p.Parts))
	for _, part := range p.Parts {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		fname := filepath.Join(dir, part.Name)
		if err := writeFile(fname, p.Render(part)); err != nil {
			return files, fmt.Errorf("unable to write part %d: %w", part.Index, err)
		}
		files = append(files, fname)
		log.Debug("Part written", zap.Int("part", part.Index), zap.String("file", fname),
			zap.Int("from", part.Range.From), zap.Int("blocks", part.Range.Len()))
	}
	return files, nil
}

// WriteLoader renders loader page for this partition into directory dir.
func (p *Partition) WriteLoader(dir string, cfg *config.LoaderConfig) (string, error) {
	text, err := loader.PageTemplate(cfg)
	if err != nil {
		return "", err
	}
	buf := new(bytes.Buffer)
	if err := loader.RenderPage(buf, text, loader.NewPage(cfg, p.Names())); err != nil {
		return "", err
	}
	fname := filepath.Join(dir, config.CleanFileName(cfg.FileName))
	if err := writeFile(fname, buf.Bytes()); err != nil {
		return "", fmt.Errorf("unable to write loader page: %w", err)
	}
	return fname, nil
}

func writeFile(fname string, data []byte) (err error) {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	_, err = f.Write(data)
	return err
}

// baseName returns source file name without extension, it is available to
// part name template as .Base.
func baseName(src string) string {
	name := filepath.Base(src)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
