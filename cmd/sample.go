package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/stupside/veil/internal/app"
	"github.com/stupside/veil/internal/host"
	"github.com/stupside/veil/internal/shield"
	"github.com/stupside/veil/internal/surface"
)

// sampleFlags are shared by the commands that export a surface repeatedly.
type sampleFlags struct {
	reads    int
	interval time.Duration
	mimeType string
	watch    bool
}

func (f *sampleFlags) flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "reads",
			Aliases:     []string{"n"},
			Usage:       "Number of exports",
			Value:       3,
			Destination: &f.reads,
		},
		&cli.DurationFlag{
			Name:        "interval",
			Usage:       "Pause between exports",
			Destination: &f.interval,
		},
		&cli.StringFlag{
			Name:        "type",
			Usage:       "Export MIME type",
			Value:       surface.MIMEPNG,
			Destination: &f.mimeType,
		},
		&cli.BoolFlag{
			Name:        "watch",
			Usage:       "Apply config file changes while sampling",
			Destination: &f.watch,
		},
	}
}

// exportable is a surface that can be exported directly.
type exportable interface {
	surface.Surface
	surface.Exporter
}

type sample struct {
	url string
	err error
}

// newShield wires a shield whose port mirrors the loaded noise settings.
func newShield(cfg *app.Config) (*shield.Shield, error) {
	sh, err := shield.New(shield.Options{})
	if err != nil {
		return nil, err
	}
	sh.Port.SetAll(cfg.Noise.Attributes())
	return sh, nil
}

// runSamples exports target through the shield's realm on the loop goroutine,
// printing one digest per export. The clean digest is read first, bypassing
// the realm.
func runSamples(ctx context.Context, cmd *cli.Command, sh *shield.Shield, target exportable, f sampleFlags) error {
	if f.reads < 1 {
		return fmt.Errorf("reads must be positive, got %d", f.reads)
	}

	out := cmd.Root().Writer
	if out == nil {
		out = io.Discard
	}

	clean, err := target.DataURL(f.mimeType, 0)
	if err != nil {
		return fmt.Errorf("reading clean export: %w", err)
	}
	fmt.Fprintf(out, "clean\t%s\n", digest(clean))

	if f.watch {
		path, ok := cmd.Root().Metadata["config_path"].(string)
		if !ok {
			return fmt.Errorf("--watch needs a config file")
		}
		stop, err := app.Watch(path, func(cfg *app.Config) {
			sh.Port.SetAll(cfg.Noise.Attributes())
			slog.Info("noise settings updated", "mode", cfg.Noise.Mode, "enabled", cfg.Noise.Enabled)
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := stop(); err != nil {
				slog.Debug("config unwatch failed", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := sh.Loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		want := digest(clean)
		for i := range f.reads {
			if i > 0 && f.interval > 0 {
				select {
				case <-time.After(f.interval):
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			s, err := exportOnLoop(ctx, sh, target, f.mimeType)
			if err != nil {
				return err
			}
			if s.err != nil {
				return fmt.Errorf("export %d: %w", i+1, s.err)
			}

			d := digest(s.url)
			fmt.Fprintf(out, "read %d\t%s\tnoised=%t\n", i+1, d, d != want)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("sampling complete", "reads", f.reads, "manipulations", sh.Port.Manipulations())
	return nil
}

// exportOnLoop runs one export as a loop task so the engine's restore lands
// on the following turn, before the next export.
func exportOnLoop(ctx context.Context, sh *shield.Shield, target surface.Surface, mimeType string) (sample, error) {
	done := make(chan sample, 1)
	sh.Loop.Post(func() {
		url, err := host.ToDataURL(sh.Realm, target, mimeType)
		done <- sample{url: url, err: err}
	})

	select {
	case s := <-done:
		return s, nil
	case <-ctx.Done():
		return sample{}, ctx.Err()
	}
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
