package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"storypack/config"
)

var ErrNoManifest = errors.New("page has no parts manifest")

// Report summarizes assembly. Failed holds 1-based indexes of parts which
// could not be fetched or parsed.
type Report struct {
	Processed int
	Failed    []int
	Nodes     int
}

// Assembler does natively what generated loader page does in browser: fetches
// parts one by one and appends matched story nodes to the container.
type Assembler struct {
	fetcher  Fetcher
	cfg      *config.LoaderConfig
	selector goquery.Matcher
	log      *zap.Logger

	// Progress is called after every part, processed counts failed parts too.
	Progress func(processed, total int)
}

func NewAssembler(fetcher Fetcher, cfg *config.LoaderConfig, log *zap.Logger) (*Assembler, error) {
	sel, err := cascadia.Compile(cfg.Selector)
	if err != nil {
		return nil, fmt.Errorf("bad story selector %q: %w", cfg.Selector, err)
	}
	return &Assembler{fetcher: fetcher, cfg: cfg, selector: sel, log: log}, nil
}

// Assemble appends story nodes of every part to the container of the shell
// page. Parts are processed strictly sequentially, failures are logged and
// skipped. Context is checked between parts.
func (a *Assembler) Assemble(ctx context.Context, shell *goquery.Document, parts []string) (*Report, error) {
	container := findByID(shell.Selection, a.cfg.ContainerID)
	if container.Length() == 0 {
		return nil, fmt.Errorf("page has no container element with id %q", a.cfg.ContainerID)
	}
	progress := findByID(shell.Selection, a.cfg.ProgressID)

	rpt := &Report{}
	for i, name := range parts {
		if err := ctx.Err(); err != nil {
			return rpt, err
		}

		n, err := a.appendPart(ctx, container, name)
		if err != nil {
			a.log.Error("Unable to load part, skipping", zap.Int("part", i+1), zap.String("name", name), zap.Error(err))
			rpt.Failed = append(rpt.Failed, i+1)
		} else {
			a.log.Debug("Part loaded", zap.Int("part", i+1), zap.String("name", name), zap.Int("nodes", n))
			rpt.Nodes += n
		}

		rpt.Processed++
		progress.SetText(progressText(a.cfg.ProgressLabel, rpt.Processed, len(parts)))
		if a.Progress != nil {
			a.Progress(rpt.Processed, len(parts))
		}
	}
	progress.Remove()
	return rpt, nil
}

func (a *Assembler) appendPart(ctx context.Context, container *goquery.Selection, name string) (int, error) {
	data, err := a.fetcher.Fetch(ctx, name)
	if err != nil {
		return 0, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("unable to parse part: %w", err)
	}

	count := 0
	doc.FindMatcher(a.selector).Each(func(_ int, s *goquery.Selection) {
		if a.cfg.CloneParent {
			if p := s.Parent(); p.Length() > 0 {
				s = p
			}
		}
		container.AppendSelection(s.Clone())
		count++
	})
	return count, nil
}

func progressText(label string, processed, total int) string {
	pct := int(math.Round(float64(processed) * 100 / float64(total)))
	if len(label) == 0 {
		return strconv.Itoa(pct) + "%"
	}
	return label + " " + strconv.Itoa(pct) + "%"
}

// findByID avoids building selector from arbitrary id value.
func findByID(s *goquery.Selection, id string) *goquery.Selection {
	return s.Find("[id]").FilterFunction(func(_ int, el *goquery.Selection) bool {
		v, _ := el.Attr("id")
		return v == id
	}).First()
}

// ReadManifest returns part names embedded into loader page.
func ReadManifest(shell *goquery.Document, id string) ([]string, error) {
	m := findByID(shell.Selection, id)
	if m.Length() == 0 {
		return nil, ErrNoManifest
	}
	var parts []string
	if err := json.Unmarshal([]byte(m.Text()), &parts); err != nil {
		return nil, fmt.Errorf("unable to decode parts manifest: %w", err)
	}
	return parts, nil
}

// StripScripts removes all script elements from the page, including manifest.
func StripScripts(shell *goquery.Document) int {
	scripts := shell.Find("script")
	n := scripts.Length()
	scripts.Remove()
	return n
}

// Render writes assembled page.
func Render(w io.Writer, doc *goquery.Document) error {
	for _, n := range doc.Nodes {
		if err := html.Render(w, n); err != nil {
			return fmt.Errorf("unable to render page: %w", err)
		}
	}
	return nil
}
