package cmd

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/stupside/veil/internal/app"
	"github.com/stupside/veil/internal/chrome"
)

// probeCommand returns the "probe" CLI subcommand.
func probeCommand() *cli.Command {
	var (
		f         sampleFlags
		targetURL string
		width     int
		height    int
	)

	return &cli.Command{
		Name:  "probe",
		Usage: "Export a fingerprint canvas drawn in headless Chrome",
		Flags: append(f.flags(),
			&cli.StringFlag{
				Name:        "url",
				Usage:       "Page to host the canvas in",
				Value:       "about:blank",
				Destination: &targetURL,
			},
			&cli.IntFlag{
				Name:        "width",
				Value:       220,
				Destination: &width,
			},
			&cli.IntFlag{
				Name:        "height",
				Value:       30,
				Destination: &height,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			sh, err := newShield(cfg)
			if err != nil {
				return err
			}
			defer sh.Teardown()

			sess, err := chrome.NewSession(ctx, cfg.Browser, targetURL)
			if err != nil {
				return err
			}
			defer sess.Close()

			c, err := sess.Canvas(sh.Arena, width, height)
			if err != nil {
				return err
			}
			defer c.Destroy()

			dir := chrome.SnapshotDir(targetURL)
			sess.Snapshot(ctx, dir, "canvas_ready")
			defer sess.Snapshot(ctx, dir, "sampled")

			return runSamples(ctx, cmd, sh, c, f)
		},
	}
}
