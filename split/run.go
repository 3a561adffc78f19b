package split

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"storypack/archive"
	"storypack/config"
	"storypack/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("split")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		src = env.Cfg.Split.Source
	}
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	cfg := env.Cfg.Split
	if cmd.IsSet("layout") {
		if cfg.Layout, err = config.ParseLayout(cmd.String("layout")); err != nil {
			return err
		}
	}
	if cmd.IsSet("page-size") {
		cfg.PageSize = cmd.Int("page-size")
	}
	if cmd.IsSet("max-parts") {
		cfg.MaxParts = cmd.Int("max-parts")
	}

	if cfg.Layout.Structural() && len(cfg.Pattern) > 0 {
		log.Warn("Block pattern is only used by regex layout, ignoring", zap.Stringer("layout", cfg.Layout))
	}

	log.Info("Splitting starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("layout", cfg.Layout))
	defer func(start time.Time) {
		log.Info("Splitting completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	res, err := Split(ctx, src, dst, &cfg, &env.Cfg.Loader, log)
	if err != nil {
		return err
	}

	if env.Rpt != nil {
		env.Rpt.StoreData("split-plan.txt", []byte(res.Partition.String()))
		for _, f := range res.Files {
			env.Rpt.Store(filepath.Join("split", filepath.Base(f)), f)
		}
	}

	if bundle := cmd.String("bundle"); len(bundle) > 0 {
		if bundle, err = filepath.Abs(bundle); err != nil {
			return err
		}
		names := make([]string, 0, len(res.Files))
		for _, f := range res.Files {
			names = append(names, filepath.Base(f))
		}
		if err := archive.Bundle(bundle, dst, names); err != nil {
			return fmt.Errorf("unable to create bundle: %w", err)
		}
		log.Info("Bundle created", zap.String("file", bundle), zap.Int("files", len(names)))
	}
	return nil
}

// Result describes completed split.
type Result struct {
	Partition *Partition
	// Files has all written files: parts in order followed by loader page
	Files []string
}

// Split reads source document, writes parts and loader page into directory
// dst.
func Split(ctx context.Context, src, dst string, cfg *config.SplitConfig, lcfg *config.LoaderConfig, log *zap.Logger) (*Result, error) {
	doc, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("unable to read source document: %w", err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return nil, fmt.Errorf("unable to create destination directory: %w", err)
	}

	p, err := NewPartition(doc, cfg, baseName(src), log)
	if err != nil {
		return nil, err
	}
	if err := p.Reserve(config.CleanFileName(lcfg.FileName)); err != nil {
		return nil, err
	}
	log.Info("Story blocks located", zap.Int("blocks", len(p.Blocks)), zap.Int("parts", len(p.Parts)))

	files, err := p.Write(ctx, dst, log)
	if err != nil {
		return nil, err
	}
	ldr, err := p.WriteLoader(dst, lcfg)
	if err != nil {
		return nil, err
	}
	log.Info("Loader page written", zap.String("file", ldr))

	return &Result{Partition: p, Files: append(files, ldr)}, nil
}
