package chrome

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Snapshot saves a screenshot and the page HTML under dir when debug logging
// is on. Failures are logged and otherwise ignored.
func (s *Session) Snapshot(ctx context.Context, dir, label string) {
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.DebugContext(ctx, "snapshot: mkdir failed", "error", err)
		return
	}

	prefix := filepath.Join(dir, fmt.Sprintf("%s_%d", label, time.Now().UnixMilli()))

	var buf []byte
	if err := s.run(chromedp.FullScreenshot(&buf, 90)); err != nil {
		slog.DebugContext(ctx, "snapshot: screenshot failed", "label", label, "error", err)
	} else if err := os.WriteFile(prefix+".png", buf, 0o644); err != nil {
		slog.DebugContext(ctx, "snapshot: write png failed", "error", err)
	}

	var html string
	if err := s.run(chromedp.OuterHTML("html", &html)); err != nil {
		slog.DebugContext(ctx, "snapshot: html failed", "label", label, "error", err)
	} else if err := os.WriteFile(prefix+".html", []byte(html), 0o644); err != nil {
		slog.DebugContext(ctx, "snapshot: write html failed", "error", err)
	}

	slog.DebugContext(ctx, "snapshot: saved", "label", label, "path", prefix)
}

// SnapshotDir returns the debug directory for a page URL.
func SnapshotDir(rawURL string) string {
	return filepath.Join(".debug", sanitize(rawURL))
}

// sanitize turns a URL into a safe directory name.
func sanitize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Host == "" && u.Path == "" && u.Opaque == "") {
		return "unknown"
	}
	s := u.Host + u.Path
	if s == "" {
		s = u.Scheme + "_" + u.Opaque
	}
	s = strings.NewReplacer("/", "_", ":", "_").Replace(s)
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
