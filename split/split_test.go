package split

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"storypack/config"
	"storypack/loader"
)

func testLoaderConfig() *config.LoaderConfig {
	return &config.LoaderConfig{
		FileName:      "illustrated-stories-loader.html",
		Title:         "Tales",
		Lang:          "en",
		Selector:      ".story, .story-illustration",
		ManifestID:    "story-parts",
		ContainerID:   "content",
		ProgressID:    "loading",
		ProgressLabel: "Loading stories...",
		DiscoverGlob:  "*part*.html",
	}
}

func TestNewPartition(t *testing.T) {
	doc := storyDoc(25)
	p, err := NewPartition(doc, testConfig(), "illustrated-stories-5", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewPartition() error = %v", err)
	}

	if len(p.Blocks) != 25 {
		t.Fatalf("found %d blocks, want 25", len(p.Blocks))
	}
	if p.Header != docHead {
		t.Errorf("Header = %q, want %q", p.Header, docHead)
	}
	wantNames := []string{"illustrated-stories-part-1.html", "illustrated-stories-part-2.html", "illustrated-stories-part-3.html"}
	if !slices.Equal(p.Names(), wantNames) {
		t.Errorf("Names() = %v, want %v", p.Names(), wantNames)
	}
	for i, want := range []int{10, 10, 5} {
		if got := p.Parts[i].Range.Len(); got != want {
			t.Errorf("part %d has %d blocks, want %d", i+1, got, want)
		}
	}
}

func TestPartition_Render(t *testing.T) {
	doc := storyDoc(3)
	cfg := testConfig()
	cfg.PageSize = 2
	p, err := NewPartition(doc, cfg, "src", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewPartition() error = %v", err)
	}

	want := docHead + storyBlock(1) + "\n" + storyBlock(2) + "\n</body>\n</html>"
	if got := string(p.Render(p.Parts[0])); got != want {
		t.Errorf("Render(part 1) =\n%s\nwant\n%s", got, want)
	}
	want = docHead + storyBlock(3) + "\n</body>\n</html>"
	if got := string(p.Render(p.Parts[1])); got != want {
		t.Errorf("Render(part 2) =\n%s\nwant\n%s", got, want)
	}
}

// Every part rescanned with the same matcher yields exactly its blocks, and
// all parts together hold every block once in document order.
func TestPartition_Lossless(t *testing.T) {
	layouts := []struct {
		name   string
		doc    func(n int) []byte
		adjust func(*config.SplitConfig)
	}{
		{"story-illustration", storyDoc, func(*config.SplitConfig) {}},
		{"wrapped-image", wrappedDoc, func(cfg *config.SplitConfig) {
			cfg.Layout = config.LayoutWrappedImage
		}},
		{"regex", storyDoc, func(cfg *config.SplitConfig) {
			cfg.Layout = config.LayoutRegex
			cfg.Pattern = `<div class="story">.*?</div>\s*<div class="story-illustration".*?</div>`
		}},
	}
	sizes := []struct{ blocks, pageSize int }{
		{25, 10},
		{25, 1},
		{25, 25},
		{7, 3},
		{1, 1},
		{0, 10},
	}
	for _, l := range layouts {
		for _, sz := range sizes {
			t.Run(fmt.Sprintf("%s/k=%d/s=%d", l.name, sz.blocks, sz.pageSize), func(t *testing.T) {
				cfg := testConfig()
				cfg.PageSize = sz.pageSize
				cfg.MaxParts = 0
				l.adjust(cfg)
				p, err := NewPartition(l.doc(sz.blocks), cfg, "src", zaptest.NewLogger(t))
				if err != nil {
					t.Fatalf("NewPartition() error = %v", err)
				}
				if len(p.Blocks) != sz.blocks {
					t.Fatalf("found %d blocks, want %d", len(p.Blocks), sz.blocks)
				}
				if want := max(1, (sz.blocks+sz.pageSize-1)/sz.pageSize); len(p.Parts) != want {
					t.Errorf("got %d parts, want %d", len(p.Parts), want)
				}

				var all []string
				for _, part := range p.Parts {
					blocks := match(t, cfg, p.Render(part))
					if len(blocks) != part.Range.Len() {
						t.Fatalf("part %d: rescan found %d blocks, want %d", part.Index, len(blocks), part.Range.Len())
					}
					for i, b := range blocks {
						if b.Text != p.Blocks[part.Range.From+i].Text {
							t.Errorf("part %d block %d differs after rescan", part.Index, i)
						}
						all = append(all, b.Text)
					}
				}
				if len(all) != len(p.Blocks) {
					t.Fatalf("parts hold %d blocks, want %d", len(all), len(p.Blocks))
				}
				for i, b := range p.Blocks {
					if all[i] != b.Text {
						t.Errorf("block %d out of order", i)
					}
				}
			})
		}
	}
}

func TestNewPartition_NoBlocks(t *testing.T) {
	p, err := NewPartition([]byte("<html><body><p>nothing here</p>"), testConfig(), "src", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewPartition() error = %v", err)
	}
	if len(p.Blocks) != 0 {
		t.Errorf("found %d blocks, want 0", len(p.Blocks))
	}
	if len(p.Parts) != 1 {
		t.Fatalf("got %d parts, want single degenerate part", len(p.Parts))
	}
	if got := string(p.Render(p.Parts[0])); got != "\n</body>\n</html>" {
		t.Errorf("Render() = %q, want footer only", got)
	}
}

func TestNewPartition_Errors(t *testing.T) {
	t.Run("capacity", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxParts = 2
		_, err := NewPartition(storyDoc(25), cfg, "src", zaptest.NewLogger(t))
		if !errors.Is(err, ErrCapacityExceeded) {
			t.Errorf("NewPartition() error = %v, want %v", err, ErrCapacityExceeded)
		}
	})
	t.Run("duplicate names", func(t *testing.T) {
		cfg := testConfig()
		cfg.PartNameTemplate = "part.html"
		_, err := NewPartition(storyDoc(25), cfg, "src", zaptest.NewLogger(t))
		if !errors.Is(err, loader.ErrDuplicateName) {
			t.Errorf("NewPartition() error = %v, want %v", err, loader.ErrDuplicateName)
		}
	})
}

func TestSplit(t *testing.T) {
	srcDir, dst := t.TempDir(), filepath.Join(t.TempDir(), "out")
	src := filepath.Join(srcDir, "illustrated-stories-5.html")
	if err := os.WriteFile(src, storyDoc(25), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.PartNameTemplate = `{{ .Base }}-part{{ printf "%02d" .Index }}.html`
	res, err := Split(context.Background(), src, dst, cfg, testLoaderConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	want := []string{
		"illustrated-stories-5-part01.html",
		"illustrated-stories-5-part02.html",
		"illustrated-stories-5-part03.html",
		"illustrated-stories-loader.html",
	}
	if len(res.Files) != len(want) {
		t.Fatalf("wrote %d files, want %d", len(res.Files), len(want))
	}
	for i, f := range res.Files {
		if filepath.Base(f) != want[i] {
			t.Errorf("file %d = %s, want %s", i, filepath.Base(f), want[i])
		}
		if _, err := os.Stat(f); err != nil {
			t.Errorf("file %s not written: %v", f, err)
		}
	}

	page, err := os.ReadFile(res.Files[3])
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range want[:3] {
		if !bytes.Contains(page, []byte(`"`+name+`"`)) {
			t.Errorf("loader manifest does not mention %s", name)
		}
	}

	// rerun produces identical output
	first, _ := os.ReadFile(res.Files[0])
	if _, err := Split(context.Background(), src, dst, cfg, testLoaderConfig(), zaptest.NewLogger(t)); err != nil {
		t.Fatalf("second Split() error = %v", err)
	}
	second, _ := os.ReadFile(res.Files[0])
	if !bytes.Equal(first, second) {
		t.Error("rerun produced different part")
	}
}

func TestSplit_PartNamedAsLoader(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.html")
	if err := os.WriteFile(src, storyDoc(25), 0644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "out")

	cfg := testConfig()
	cfg.PartNameTemplate = `{{ if eq .Index 2 }}illustrated-stories-loader.html{{ else }}part-{{ .Index }}.html{{ end }}`
	_, err := Split(context.Background(), src, dst, cfg, testLoaderConfig(), zaptest.NewLogger(t))
	if !errors.Is(err, loader.ErrDuplicateName) {
		t.Fatalf("Split() error = %v, want %v", err, loader.ErrDuplicateName)
	}
	entries, err := os.ReadDir(dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Split() wrote %d files before failing", len(entries))
	}
}

func TestSplit_Cancelled(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.html")
	if err := os.WriteFile(src, storyDoc(5), 0644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Split(ctx, src, t.TempDir(), testConfig(), testLoaderConfig(), zaptest.NewLogger(t))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Split() error = %v, want %v", err, context.Canceled)
	}
}

func TestPartition_String(t *testing.T) {
	p, err := NewPartition(storyDoc(3), testConfig(), "src", zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	dump := p.String()
	for _, want := range []string{"partition: 3 blocks, 1 parts", "part 1: illustrated-stories-part-1.html blocks [0, 3)", "block 2: bytes"} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump does not contain %q:\n%s", want, dump)
		}
	}
}
