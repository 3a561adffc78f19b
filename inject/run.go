package inject

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"storypack/config"
	"storypack/css"
	"storypack/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("inject")
	cfg := env.Cfg.Inject

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		src = cfg.Source
	}
	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = cfg.Destination
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}
	if cmd.IsSet("style") {
		cfg.StylePath = cmd.String("style")
	}
	if cmd.IsSet("script") {
		cfg.ScriptPath = cmd.String("script")
	}

	log.Info("Injecting starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Injecting completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	frags, err := LoadFragments(&cfg)
	if err != nil {
		return err
	}

	sum := css.NewLinter(log).Lint(frags.Style, cfg.StylePath)
	log.Debug("Stylesheet checked", zap.Int("rules", sum.Rules), zap.Int("declarations", sum.Declarations))
	for _, w := range sum.Warnings {
		log.Warn("Stylesheet problem", zap.String("problem", w))
	}

	warnings, err := File(src, dst, frags)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn("Injection problem", zap.String("problem", w))
	}
	env.Rpt.Store("inject/"+filepath.Base(dst), dst)
	return nil
}

// LoadFragments reads configured style and script or uses embedded flipbook.
func LoadFragments(cfg *config.InjectConfig) (Fragments, error) {
	frags := Fragments{
		Style:      DefaultStyle,
		Script:     DefaultScript,
		HeadMarker: cfg.HeadMarker,
		BodyMarker: cfg.BodyMarker,
	}
	if cfg.StylePath != "" {
		data, err := os.ReadFile(cfg.StylePath)
		if err != nil {
			return frags, fmt.Errorf("unable to read style css from %q: %w", cfg.StylePath, err)
		}
		frags.Style = data
	}
	if cfg.ScriptPath != "" {
		data, err := os.ReadFile(cfg.ScriptPath)
		if err != nil {
			return frags, fmt.Errorf("unable to read script from %q: %w", cfg.ScriptPath, err)
		}
		frags.Script = data
	}
	return frags, nil
}

// File injects fragments into src and writes result to dst.
func File(src, dst string, frags Fragments) ([]string, error) {
	doc, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("unable to read source document: %w", err)
	}
	res := Inject(doc, frags)
	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("unable to create destination directory: %w", err)
		}
	}
	if err := os.WriteFile(dst, res.Doc, 0644); err != nil {
		return nil, fmt.Errorf("unable to write destination document: %w", err)
	}
	return res.Warnings, nil
}
