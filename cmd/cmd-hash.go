package cmd

import (
	"context"
	"image"
	"image/color"

	"github.com/urfave/cli/v3"

	"github.com/stupside/veil/internal/app"
	"github.com/stupside/veil/internal/surface"
)

// hashCommand returns the "hash" CLI subcommand.
func hashCommand() *cli.Command {
	var (
		f      sampleFlags
		width  int
		height int
	)

	return &cli.Command{
		Name:  "hash",
		Usage: "Export an in-memory fingerprint canvas and print its digests",
		Flags: append(f.flags(),
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

			c := sh.Canvas(width, height)
			defer c.Destroy()
			drawScene(c)

			return runSamples(ctx, cmd, sh, c, f)
		},
	}
}

// drawScene paints overlapping bands so every channel carries varied values.
func drawScene(c *surface.Canvas) {
	w, h := c.Size()
	c.Fill(color.NRGBA{255, 255, 255, 255})
	c.FillRect(image.Rect(w*6/10, 1, w*9/10, h*3/10+1), color.NRGBA{0xff, 0x66, 0x00, 0xff})
	for i, col := range []color.NRGBA{
		{0xff, 0x22, 0xff, 0xb3},
		{0x22, 0xff, 0xff, 0xb3},
		{0xff, 0xff, 0x22, 0xb3},
	} {
		x := w * (10 + 15*i) / 100
		c.FillRect(image.Rect(x, h/4, x+w/5, h), col)
	}
	for x := 0; x < w; x += 3 {
		c.FillRect(image.Rect(x, h/2, x+1, h/2+2), color.NRGBA{0x00, 0x66, 0x99, byte(128 + x%128)})
	}
}
