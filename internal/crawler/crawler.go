package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/v0xg/formfill/internal/dom"
	"go.uber.org/zap"
)

// Options configures the browser behavior
type Options struct {
	Width             int
	Height            int
	Bin               string        // Chrome/Chromium binary; looked up when empty
	ProfileDir        string        // Chrome/Chromium profile directory for authenticated sessions
	NavigationTimeout time.Duration // Upper bound for navigation + load event
	IdleTimeout       time.Duration // Upper bound for waiting on network idle
	IdleWindow        time.Duration // How long the network must stay quiet
	SettleTimeout     time.Duration // Upper bound for the post-click navigation/idle race
	SPAWait           time.Duration // How long to poll for interactive elements on SPAs
}

// DefaultOptions returns the browser settings used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Width:             1280,
		Height:            720,
		NavigationTimeout: 30 * time.Second,
		IdleTimeout:       5 * time.Second,
		IdleWindow:        500 * time.Millisecond,
		SettleTimeout:     10 * time.Second,
		SPAWait:           5 * time.Second,
	}
}

// Launcher opens one browser process per page
type Launcher struct {
	opts Options
	log  *zap.Logger
}

// NewLauncher creates a rod-backed Opener
func NewLauncher(opts Options, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	for _, d := range []struct{ v, def *time.Duration }{
		{&opts.NavigationTimeout, &def.NavigationTimeout},
		{&opts.IdleTimeout, &def.IdleTimeout},
		{&opts.IdleWindow, &def.IdleWindow},
		{&opts.SettleTimeout, &def.SettleTimeout},
		{&opts.SPAWait, &def.SPAWait},
	} {
		if *d.v <= 0 {
			*d.v = *d.def
		}
	}
	return &Launcher{opts: opts, log: logger.Named("crawler")}
}

// Open launches a browser and returns its single page
func (l *Launcher) Open(ctx context.Context, o OpenOptions) (Page, error) {
	bin := l.opts.Bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}

	ln := launcher.New().Context(ctx).Bin(bin).Headless(o.Headless)
	if l.opts.ProfileDir != "" {
		ln = ln.UserDataDir(l.opts.ProfileDir)
	}

	u, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		ln.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		ln.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             l.opts.Width,
		Height:            l.opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		l.log.Debug("Failed to set viewport", zap.Error(err))
	}

	l.log.Debug("Browser launched", zap.Bool("headless", o.Headless), zap.String("bin", bin))
	return &rodPage{
		browser:  browser,
		page:     page,
		launcher: ln,
		keepDir:  l.opts.ProfileDir != "",
		opts:     l.opts,
		log:      l.log,
	}, nil
}

// rodPage wraps the Rod browser and its only page
type rodPage struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	keepDir  bool
	opts     Options
	log      *zap.Logger
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx).Timeout(p.opts.NavigationTimeout)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *rodPage) WaitIdle(ctx context.Context) error {
	// Don't hang on persistent connections (WebSockets, polling, etc.)
	p.page.Context(ctx).Timeout(p.opts.IdleTimeout).WaitRequestIdle(p.opts.IdleWindow, nil, nil, nil)()
	if err := ctx.Err(); err != nil {
		return err
	}

	// SPAs need time to download bundles, hydrate and fetch client-side data
	if detectSPA(ctx, p.page) {
		waitForInteractiveElements(ctx, p.page, p.opts.SPAWait)
	}
	return ctx.Err()
}

// snapshotScript marks controls without a layout box, serializes the
// document and removes the marks again.
const snapshotScript = `(attr) => {
	const controls = document.querySelectorAll('input, textarea, select, button, [role="button"]');
	controls.forEach(el => { if (el.offsetParent === null) el.setAttribute(attr, '1'); });
	const html = document.documentElement.outerHTML;
	document.querySelectorAll('[' + attr + ']').forEach(el => el.removeAttribute(attr));
	return html;
}`

func (p *rodPage) Snapshot(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(snapshotScript, dom.HiddenMarkAttr)
	if err != nil {
		return "", fmt.Errorf("snapshot failed: %w", err)
	}
	return res.Value.String(), nil
}

func (p *rodPage) Find(ctx context.Context, locator string) (Element, bool, error) {
	page := p.page.Context(ctx)

	var (
		has bool
		el  *rod.Element
		err error
	)
	if dom.IsXPath(locator) {
		has, el, err = page.HasX(locator)
	} else {
		has, el, err = page.Has(locator)
	}
	if err != nil || !has {
		return nil, false, err
	}
	return &rodElement{el: el, page: p.page}, true, nil
}

func (p *rodPage) Eval(ctx context.Context, js string) error {
	_, err := p.page.Context(ctx).Eval(js)
	return err
}

func (p *rodPage) WaitSettle(ctx context.Context) func() error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.SettleTimeout)
	page := p.page.Context(ctx)
	navigated := page.WaitNavigation(proto.PageLifecycleEventNameLoad)
	idle := page.WaitRequestIdle(p.opts.IdleWindow, nil, nil, nil)

	return func() error {
		defer cancel()
		done := make(chan string, 2)
		go func() { navigated(); done <- "navigation" }()
		go func() { idle(); done <- "idle" }()

		first := <-done
		p.log.Debug("Page settled", zap.String("signal", first))
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return nil
	}
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// Close cleans up browser resources
func (p *rodPage) Close() error {
	var errs []error
	if p.page != nil {
		if err := p.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.launcher != nil {
		if p.keepDir {
			p.launcher.Kill()
		} else {
			p.launcher.Cleanup()
		}
	}
	return errors.Join(errs...)
}

type rodElement struct {
	el   *rod.Element
	page *rod.Page
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

func (e *rodElement) Clear(ctx context.Context) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Type(input.Backspace)
}

func (e *rodElement) Type(ctx context.Context, text string, delay time.Duration) error {
	el := e.el.Context(ctx)
	for _, char := range text {
		var err error
		if char >= 0x20 && char < 0x7f {
			err = el.Type(input.Key(char))
		} else {
			// No key definition for it, insert as composed text
			if err = el.Focus(); err == nil {
				err = e.page.Context(ctx).InsertText(string(char))
			}
		}
		if err != nil {
			return err
		}
		if err := Sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

func (e *rodElement) Select(ctx context.Context, option string) error {
	return e.el.Context(ctx).Select([]string{option}, true, rod.SelectorTypeText)
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Checked(ctx context.Context) (bool, error) {
	v, err := e.el.Context(ctx).Property("checked")
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func (e *rodElement) Eval(ctx context.Context, js string) error {
	_, err := e.el.Context(ctx).Eval(js)
	return err
}

// waitForInteractiveElements polls until interactive elements appear or timeout
func waitForInteractiveElements(ctx context.Context, page *rod.Page, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	checkInterval := 200 * time.Millisecond

	for time.Now().Before(deadline) {
		res, err := page.Context(ctx).Eval(`() => {
			const controls = document.querySelectorAll('button, [role="button"], input:not([type="hidden"]), textarea, select');
			let visible = 0;
			controls.forEach(el => { if (el.offsetParent) visible++; });
			return visible;
		}`)
		if err != nil {
			return
		}

		if res.Value.Int() > 0 {
			// Found elements, wait a tiny bit more for any final renders
			_ = Sleep(ctx, 300*time.Millisecond)
			return
		}

		if Sleep(ctx, checkInterval) != nil {
			return
		}
	}
}

// detectSPA checks if the page is a Single Page Application
func detectSPA(ctx context.Context, page *rod.Page) bool {
	res, err := page.Context(ctx).Eval(`() => {
		// React
		if (window.__REACT_DEVTOOLS_GLOBAL_HOOK__ || document.querySelector('[data-reactroot]') || document.querySelector('#__next')) return true;
		// Vue
		if (window.__VUE__ || document.querySelector('[data-v-app]')) return true;
		// Angular
		if (window.ng || document.querySelector('[ng-version]') || document.querySelector('app-root')) return true;
		// Svelte
		if (document.querySelector('[class*="svelte-"]')) return true;
		return false;
	}`)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

// Sleep pauses for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
