package loader

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"

	"storypack/config"
)

var ErrDuplicateName = errors.New("part name template produces duplicate names")

// NameValues holds variables available for part name template expansion.
type NameValues struct {
	Index  int // 1-based
	Total  int
	Base   string
	Layout string
}

// Namer expands part file names. Parts are numbered contiguously from 1, so
// the list of names is the only thing loader needs to know about the split.
type Namer struct {
	tmpl          *template.Template
	transliterate bool
}

func NewNamer(text string, transliterate bool) (*Namer, error) {
	tmpl, err := template.New(string(config.PartNameTemplateFieldName)).Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("unable to parse template field %s: %w", config.PartNameTemplateFieldName, err)
	}
	return &Namer{tmpl: tmpl, transliterate: transliterate}, nil
}

// Name returns cleaned file name for a single part.
func (n *Namer) Name(values NameValues) (string, error) {
	buf := new(bytes.Buffer)
	if err := n.tmpl.Execute(buf, values); err != nil {
		return "", fmt.Errorf("unable to expand part name for part %d: %w", values.Index, err)
	}
	name := strings.TrimSpace(buf.String())
	if n.transliterate {
		ext := filepath.Ext(name)
		name = slug.Make(strings.TrimSuffix(name, ext)) + ext
	}
	return config.CleanFileName(name), nil
}

// Names returns names for parts 1..total.
func (n *Namer) Names(total int, base, layout string) ([]string, error) {
	names := make([]string, 0, total)
	seen := make(map[string]int, total)
	for i := 1; i <= total; i++ {
		name, err := n.Name(NameValues{Index: i, Total: total, Base: base, Layout: layout})
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: parts %d and %d are both named %q", ErrDuplicateName, prev, i, name)
		}
		seen[name] = i
		names = append(names, name)
	}
	return names, nil
}
