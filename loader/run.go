package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/h2non/filetype"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"storypack/config"
	"storypack/state"
)

// Run assembles split parts back into single page.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("assemble")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = env.Cfg.Assemble.Destination
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	name := env.Cfg.Assemble.Encoding
	if cmd.IsSet("encoding") {
		name = cmd.String("encoding")
	}
	enc := selectEncoding(name, log)

	fetcher, shellName, err := selectFetcher(src, env.Cfg.Loader.FileName, enc)
	if err != nil {
		return err
	}

	log.Info("Assembling starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Assembling completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	shell, err := loadShell(ctx, fetcher, shellName, &env.Cfg.Loader, log)
	if err != nil {
		return err
	}

	parts, err := resolveParts(ctx, cmd, env.Cfg, fetcher, shell, shellName, log)
	if err != nil {
		return err
	}
	if env.Cfg.Assemble.StripScripts {
		log.Debug("Loader scripts removed", zap.Int("count", StripScripts(shell)))
	}

	a, err := NewAssembler(fetcher, &env.Cfg.Loader, log)
	if err != nil {
		return err
	}
	a.Progress = func(processed, total int) {
		log.Info("Loading stories...", zap.Int("processed", processed), zap.Int("total", total))
	}
	rpt, err := a.Assemble(ctx, shell, parts)
	if err != nil {
		return err
	}
	if len(rpt.Failed) > 0 {
		log.Warn("Some parts were skipped", zap.Ints("failed", rpt.Failed))
	}

	if err := writePage(dst, shell); err != nil {
		return err
	}
	env.Rpt.Store("assemble/"+filepath.Base(dst), dst)
	log.Info("Page assembled", zap.String("file", dst), zap.Int("parts", rpt.Processed), zap.Int("nodes", rpt.Nodes))
	return nil
}

// selectEncoding returns forced encoding for parts, nil means detection.
func selectEncoding(name string, log *zap.Logger) encoding.Encoding {
	if len(name) == 0 {
		return nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", name), zap.Error(err))
		return nil
	}
	n, _ := ianaindex.IANA.Name(enc)
	log.Debug("Forcefully decoding all parts", zap.String("charset", n))
	return enc
}

// selectFetcher decides how parts are accessed: web server, directory, zip
// bundle or directory of the loader page file.
func selectFetcher(src, loaderName string, enc encoding.Encoding) (Fetcher, string, error) {
	if u, err := url.Parse(src); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		shellName := loaderName
		if ext := path.Ext(u.Path); len(ext) > 0 {
			shellName = path.Base(u.Path)
		} else if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		f, err := NewHTTPFetcher(u.String(), enc)
		return f, shellName, err
	}

	fi, err := os.Stat(src)
	if err != nil {
		return nil, "", fmt.Errorf("input source was not found: %w", err)
	}
	if fi.IsDir() {
		return &FSFetcher{FS: os.DirFS(src), Encoding: enc}, loaderName, nil
	}
	if !fi.Mode().IsRegular() {
		return nil, "", fmt.Errorf("unexpected path mode for (%s)", src)
	}

	zip, err := isArchiveFile(src)
	if err != nil {
		return nil, "", fmt.Errorf("unable to check archive type: %w", err)
	}
	if zip {
		return &ArchiveFetcher{Path: src, Encoding: enc}, loaderName, nil
	}
	return &FSFetcher{FS: os.DirFS(filepath.Dir(src)), Encoding: enc}, filepath.Base(src), nil
}

func isArchiveFile(fname string) (bool, error) {
	f, err := os.Open(fname)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// 262 bytes is enough for any known signature
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

// loadShell gets loader page to assemble into. When there is none, page is
// rendered from built-in template.
func loadShell(ctx context.Context, fetcher Fetcher, name string, cfg *config.LoaderConfig, log *zap.Logger) (*goquery.Document, error) {
	data, err := fetcher.Fetch(ctx, name)
	if err != nil {
		log.Warn("Unable to load loader page, using built-in one", zap.String("name", name), zap.Error(err))
		buf := new(bytes.Buffer)
		if err := RenderPage(buf, DefaultPageTemplate, NewPage(cfg, nil)); err != nil {
			return nil, err
		}
		data = buf.Bytes()
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to parse loader page: %w", err)
	}
	return doc, nil
}

// resolveParts gets list of part names: from command line, from loader page
// manifest or by discovery.
func resolveParts(ctx context.Context, cmd *cli.Command, cfg *config.Config, fetcher Fetcher, shell *goquery.Document, shellName string, log *zap.Logger) ([]string, error) {
	if cmd.IsSet("parts") {
		namer, err := NewNamer(cfg.Split.PartNameTemplate, cfg.Split.FileNameTransliterate)
		if err != nil {
			return nil, err
		}
		src := filepath.Base(cfg.Split.Source)
		return namer.Names(cmd.Int("parts"), strings.TrimSuffix(src, filepath.Ext(src)), cfg.Split.Layout.String())
	}

	parts, err := ReadManifest(shell, cfg.Loader.ManifestID)
	if err == nil && len(parts) > 0 {
		log.Debug("Using parts manifest", zap.Int("parts", len(parts)))
		return parts, nil
	}
	if err != nil && !errors.Is(err, ErrNoManifest) {
		return nil, err
	}

	lister, ok := fetcher.(Lister)
	if !ok {
		return nil, errors.New("unable to determine parts, use --parts")
	}
	names, err := lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to list parts: %w", err)
	}
	parts, err = Discover(names, cfg.Loader.DiscoverGlob, shellName)
	if err != nil {
		return nil, err
	}
	log.Info("Parts discovered", zap.Int("parts", len(parts)), zap.String("pattern", cfg.Loader.DiscoverGlob))
	return parts, nil
}

func writePage(fname string, doc *goquery.Document) (err error) {
	if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
		return fmt.Errorf("unable to create destination directory: %w", err)
	}
	out, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
	}
	defer func() {
		err = multierr.Append(err, out.Close())
	}()
	return Render(out, doc)
}
