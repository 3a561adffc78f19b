package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap/zaptest"
)

func partDoc(stories ...int) string {
	b := &strings.Builder{}
	b.WriteString("<!DOCTYPE html><html><head><title>Tales</title></head><body><div class=\"content-wrapper\">\n")
	for _, i := range stories {
		fmt.Fprintf(b, "<div class=\"story\"><p>Story %d</p></div>\n<div class=\"story-illustration\"><img src=\"%d.png\"></div>\n", i, i)
	}
	b.WriteString("\n</body>\n</html>")
	return b.String()
}

func shellDoc(t *testing.T, parts []string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(renderPage(t, testConfig(), parts)))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func storyTexts(doc *goquery.Document) []string {
	var texts []string
	findByID(doc.Selection, "content").Find(".story").Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	return texts
}

func TestAssemble_HTTPPartFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/part-1.html":
			w.Write([]byte(partDoc(1, 2)))
		case "/part-3.html":
			w.Write([]byte(partDoc(5, 6)))
		default:
			http.Error(w, "gone", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(srv.URL+"/", nil)
	if err != nil {
		t.Fatal(err)
	}
	a, err := NewAssembler(f, testConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}
	var progress []string
	a.Progress = func(processed, total int) {
		progress = append(progress, fmt.Sprintf("%d/%d", processed, total))
	}

	parts := []string{"part-1.html", "part-2.html", "part-3.html"}
	shell := shellDoc(t, parts)
	rpt, err := a.Assemble(context.Background(), shell, parts)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if rpt.Processed != 3 {
		t.Errorf("Processed = %d, want 3", rpt.Processed)
	}
	if !slices.Equal(rpt.Failed, []int{2}) {
		t.Errorf("Failed = %v, want [2]", rpt.Failed)
	}
	// story and illustration for each of 4 stories
	if rpt.Nodes != 8 {
		t.Errorf("Nodes = %d, want 8", rpt.Nodes)
	}
	want := []string{"Story 1", "Story 2", "Story 5", "Story 6"}
	if got := storyTexts(shell); !slices.Equal(got, want) {
		t.Errorf("stories = %v, want %v", got, want)
	}
	if !slices.Equal(progress, []string{"1/3", "2/3", "3/3"}) {
		t.Errorf("progress = %v", progress)
	}
	if findByID(shell.Selection, "loading").Length() != 0 {
		t.Error("progress indicator must be removed at the end")
	}
}

func TestAssemble_Order(t *testing.T) {
	fsys := fstest.MapFS{}
	var parts, want []string
	for i := range 12 {
		name := fmt.Sprintf("part-%d.html", i+1)
		fsys[name] = &fstest.MapFile{Data: []byte(partDoc(2*i+1, 2*i+2))}
		parts = append(parts, name)
		want = append(want, fmt.Sprintf("Story %d", 2*i+1), fmt.Sprintf("Story %d", 2*i+2))
	}

	a, err := NewAssembler(&FSFetcher{FS: fsys}, testConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	shell := shellDoc(t, parts)
	rpt, err := a.Assemble(context.Background(), shell, parts)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(rpt.Failed) != 0 {
		t.Errorf("Failed = %v", rpt.Failed)
	}
	if got := storyTexts(shell); !slices.Equal(got, want) {
		t.Errorf("stories = %v, want %v", got, want)
	}

	// story is immediately followed by its illustration
	container := findByID(shell.Selection, "content")
	container.Find(".story").Each(func(i int, s *goquery.Selection) {
		if !s.Next().HasClass("story-illustration") {
			t.Errorf("story %d is not followed by illustration", i+1)
		}
	})
}

func TestAssemble_UTF8AfterLongHead(t *testing.T) {
	const story = "Sir Peepius said “Cluck!” — naïve chick 🐣"
	// no charset declared, first kilobyte is plain ASCII
	part := "<!DOCTYPE html><html><head><style>\n" +
		strings.Repeat(".story p { margin: 0 auto; }\n", 50) +
		"</style></head><body>\n<div class=\"story\"><p>" + story + "</p></div>\n" +
		"<div class=\"story-illustration\"><img src=\"1.png\"></div>\n</body>\n</html>"

	fsys := fstest.MapFS{"part-1.html": {Data: []byte(part)}}
	a, err := NewAssembler(&FSFetcher{FS: fsys}, testConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	shell := shellDoc(t, []string{"part-1.html"})
	if _, err := a.Assemble(context.Background(), shell, []string{"part-1.html"}); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if got := storyTexts(shell); !slices.Equal(got, []string{story}) {
		t.Errorf("stories = %q, want %q", got, story)
	}
}

func TestAssemble_CloneParent(t *testing.T) {
	fsys := fstest.MapFS{
		"p.html": {Data: []byte(`<div class="entry"><img src="1.png"><div class="story">one</div></div>`)},
	}
	cfg := testConfig()
	cfg.Selector = ".story"
	cfg.CloneParent = true

	a, err := NewAssembler(&FSFetcher{FS: fsys}, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	shell := shellDoc(t, []string{"p.html"})
	if _, err := a.Assemble(context.Background(), shell, []string{"p.html"}); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	entry := findByID(shell.Selection, "content").Children()
	if !entry.HasClass("entry") || entry.Find("img").Length() != 1 {
		t.Errorf("parent was not cloned: %v", goquery.NodeName(entry))
	}
}

func TestAssemble_Cancelled(t *testing.T) {
	fsys := fstest.MapFS{"p.html": {Data: []byte(partDoc(1))}}
	a, err := NewAssembler(&FSFetcher{FS: fsys}, testConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.Progress = func(int, int) { cancel() }

	shell := shellDoc(t, nil)
	rpt, err := a.Assemble(ctx, shell, []string{"p.html", "p.html"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Assemble() error = %v, want %v", err, context.Canceled)
	}
	if rpt.Processed != 1 {
		t.Errorf("Processed = %d, want 1", rpt.Processed)
	}
}

func TestAssemble_NoContainer(t *testing.T) {
	a, err := NewAssembler(&FSFetcher{FS: fstest.MapFS{}}, testConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	if _, err := a.Assemble(context.Background(), doc, nil); err == nil {
		t.Error("Assemble() expected error without container")
	}
}

func TestNewAssembler_BadSelector(t *testing.T) {
	cfg := testConfig()
	cfg.Selector = "div[["
	if _, err := NewAssembler(&FSFetcher{}, cfg, zaptest.NewLogger(t)); err == nil {
		t.Error("NewAssembler() expected error for bad selector")
	}
}

func TestProgressText(t *testing.T) {
	tests := []struct {
		label            string
		processed, total int
		want             string
	}{
		{"Loading stories...", 1, 3, "Loading stories... 33%"},
		{"Loading stories...", 2, 3, "Loading stories... 67%"},
		{"Loaded", 10, 10, "Loaded 100%"},
		{"", 1, 2, "50%"},
	}
	for _, tt := range tests {
		if got := progressText(tt.label, tt.processed, tt.total); got != tt.want {
			t.Errorf("progressText(%q, %d, %d) = %q, want %q", tt.label, tt.processed, tt.total, got, tt.want)
		}
	}
}

func TestStripScriptsAndRender(t *testing.T) {
	shell := shellDoc(t, []string{"a.html"})
	if n := StripScripts(shell); n != 2 {
		t.Errorf("StripScripts() = %d, want 2", n)
	}
	if _, err := ReadManifest(shell, "story-parts"); !errors.Is(err, ErrNoManifest) {
		t.Errorf("ReadManifest() error = %v, want %v", err, ErrNoManifest)
	}

	buf := new(bytes.Buffer)
	if err := Render(buf, shell); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(buf.String(), "<script") {
		t.Error("rendered page still has scripts")
	}
	if !strings.HasPrefix(buf.String(), "<!DOCTYPE html>") {
		t.Errorf("rendered page lost doctype: %.40s", buf.String())
	}
}
