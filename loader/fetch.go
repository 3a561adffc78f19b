package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"sort"
	"unicode/utf8"

	"github.com/maruel/natural"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"

	"storypack/archive"
)

// Fetcher retrieves part files by name relative to loader page location.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Lister is implemented by fetchers able to enumerate available files.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// decode converts content to UTF-8. When enc is nil encoding is determined
// from BOM, content type or meta tags in the first 1024 bytes. Without any of
// those valid UTF-8 content is kept as is, only content which is not UTF-8
// falls back to windows-1252.
func decode(data []byte, enc encoding.Encoding, contentType string) ([]byte, error) {
	if enc == nil {
		var (
			name    string
			certain bool
		)
		enc, name, certain = charset.DetermineEncoding(data, contentType)
		if !certain && name == "windows-1252" && utf8.Valid(data) {
			return data, nil
		}
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode content: %w", err)
	}
	return out, nil
}

// HTTPFetcher gets files from static web server. Requests carry no custom
// headers and are not retried.
type HTTPFetcher struct {
	Base     *url.URL
	Client   *http.Client
	Encoding encoding.Encoding
}

func NewHTTPFetcher(base string, enc encoding.Encoding) (*HTTPFetcher, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("unable to parse base url: %w", err)
	}
	return &HTTPFetcher{Base: u, Client: http.DefaultClient, Encoding: enc}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	ref, err := url.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("bad part name %q: %w", name, err)
	}
	u := f.Base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unable to fetch %s: %s", u, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", u, err)
	}
	return decode(data, f.Encoding, resp.Header.Get("Content-Type"))
}

// FSFetcher reads files from file system, usually os.DirFS of the directory
// with split results.
type FSFetcher struct {
	FS       fs.FS
	Encoding encoding.Encoding
}

func (f *FSFetcher) Fetch(_ context.Context, name string) ([]byte, error) {
	data, err := fs.ReadFile(f.FS, path.Clean(name))
	if err != nil {
		return nil, err
	}
	return decode(data, f.Encoding, "")
}

func (f *FSFetcher) List(_ context.Context) ([]string, error) {
	entries, err := fs.ReadDir(f.FS, ".")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ArchiveFetcher reads files from zip bundle.
type ArchiveFetcher struct {
	Path     string
	Encoding encoding.Encoding
}

func (f *ArchiveFetcher) Fetch(_ context.Context, name string) ([]byte, error) {
	data, err := archive.ReadFile(f.Path, path.Clean(name))
	if err != nil {
		return nil, err
	}
	return decode(data, f.Encoding, "")
}

func (f *ArchiveFetcher) List(_ context.Context) ([]string, error) {
	return archive.List(f.Path)
}

// Discover selects part names matching glob pattern, skipping loader page
// itself, in natural order (part-2 goes before part-10).
func Discover(names []string, glob, exclude string) ([]string, error) {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if name == exclude {
			continue
		}
		ok, err := path.Match(glob, name)
		if err != nil {
			return nil, fmt.Errorf("bad discovery pattern %q: %w", glob, err)
		}
		if ok {
			parts = append(parts, name)
		}
	}
	sort.Sort(natural.StringSlice(parts))
	return parts, nil
}
