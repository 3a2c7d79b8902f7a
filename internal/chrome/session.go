// Package chrome hosts canvas surfaces inside a headless Chrome page driven
// over the DevTools protocol.
package chrome

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/stupside/veil/internal/app"
)

//go:embed js/canvas.js
var canvasJS string

// Session owns the chromedp lifecycle for one browser tab.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
}

// NewSession starts a browser, installs the canvas bridge and navigates to
// targetURL. An empty targetURL opens about:blank.
func NewSession(ctx context.Context, cfg app.BrowserConfig, targetURL string) (*Session, error) {
	if targetURL == "" {
		targetURL = "about:blank"
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOpts(cfg)...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:         taskCtx,
		cancel:      taskCancel,
		allocCancel: allocCancel,
		timeout:     cfg.Timeout,
	}

	var ready bool
	err := s.run(
		runtime.Enable(),
		injectBridge(),
		chromedp.Navigate(targetURL),
		chromedp.Evaluate(canvasJS, &ready),
	)
	if err == nil && !ready {
		err = fmt.Errorf("canvas bridge did not load")
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("starting browser session: %w", err)
	}

	return s, nil
}

// run executes actions on the session's tab with the configured timeout. A
// child context of the chromedp task context must not be canceled, so the
// timeout is enforced from outside. A timed-out call keeps running in its
// goroutine until Close cancels the task context; NewSession closes the
// session on any startup error, so only calls made after startup can linger.
func (s *Session) run(actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(s.ctx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(s.timeout):
		return fmt.Errorf("browser call timed out after %s", s.timeout)
	}
}

// Close tears down the browser and allocator.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

// allocatorOpts returns exec-allocator options that avoid the usual
// headless-detection flags.
func allocatorOpts(cfg app.BrowserConfig) []chromedp.ExecAllocatorOption {
	var headlessVal string
	if cfg.Headless {
		headlessVal = "new"
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		chromedp.Flag("headless", headlessVal),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),

		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}

// injectBridge registers the canvas bridge on every new document so it
// survives navigations.
func injectBridge() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(canvasJS).Do(ctx)
		return err
	}
}
