// Package loader produces the page which reassembles split parts in a browser
// and implements the same reassembly protocol natively.
package loader

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"

	sprig "github.com/go-task/slim-sprig/v3"

	"storypack/config"
)

//go:embed page.html.tmpl
var DefaultPageTemplate []byte

// Page holds values for loader page template. Parts is the manifest: ordered
// part names, embedded into the page as JSON.
type Page struct {
	Title         string
	Lang          string
	Parts         []string
	ManifestID    string
	ContainerID   string
	ProgressID    string
	ProgressLabel string
	Selector      string
	CloneParent   bool
}

func NewPage(cfg *config.LoaderConfig, parts []string) Page {
	if parts == nil {
		// must render as JSON array
		parts = []string{}
	}
	return Page{
		Title:         cfg.Title,
		Lang:          cfg.Lang,
		Parts:         parts,
		ManifestID:    cfg.ManifestID,
		ContainerID:   cfg.ContainerID,
		ProgressID:    cfg.ProgressID,
		ProgressLabel: cfg.ProgressLabel,
		Selector:      cfg.Selector,
		CloneParent:   cfg.CloneParent,
	}
}

// PageTemplate returns configured loader page template or embedded default.
func PageTemplate(cfg *config.LoaderConfig) ([]byte, error) {
	if cfg.TemplatePath == "" {
		return DefaultPageTemplate, nil
	}
	data, err := os.ReadFile(cfg.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("unable to read loader page template from %q: %w", cfg.TemplatePath, err)
	}
	return data, nil
}

// RenderPage expands loader page template. Template is html/template, so values
// are escaped according to their context (manifest becomes JSON array, strings
// inside script become quoted literals).
func RenderPage(w io.Writer, text []byte, page Page) error {
	tmpl, err := template.New("loader").Funcs(template.FuncMap(sprig.FuncMap())).Parse(string(text))
	if err != nil {
		return fmt.Errorf("unable to parse loader page template: %w", err)
	}
	if err := tmpl.Execute(w, page); err != nil {
		return fmt.Errorf("unable to expand loader page template: %w", err)
	}
	return nil
}
