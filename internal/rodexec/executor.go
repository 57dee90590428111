package rodexec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// scrollStepPx is how far one scroll action moves the viewport.
const scrollStepPx = 600

// Options configure the browser session.
type Options struct {
	// Headless runs without a window.
	Headless bool

	// StartURL is opened during New. Empty leaves the blank page.
	StartURL string

	// ActionTimeout bounds each dispatched action. Zero means 15s.
	ActionTimeout time.Duration

	// Width and Height set the viewport. Zero means 1280x800.
	Width  int
	Height int

	Logger *zap.Logger
}

// Executor drives a stealth browser page. It implements the engine's
// Executor contract: Dispatch performs one action, CaptureState grabs
// the rendered frame for fingerprinting.
type Executor struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
	log     *zap.Logger
}

// New launches a browser and opens a stealth page. Close must be called
// to tear the browser down.
func New(ctx context.Context, opts Options) (*Executor, error) {
	if opts.ActionTimeout == 0 {
		opts.ActionTimeout = 15 * time.Second
	}
	if opts.Width == 0 {
		opts.Width = 1280
	}
	if opts.Height == 0 {
		opts.Height = 800
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	controlURL, err := launcher.New().
		Leakless(true).
		Headless(opts.Headless).
		Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to open stealth page: %w", err)
	}

	scale := 1.0
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  opts.Width,
		Height: opts.Height,
		Scale:  &scale,
		Mobile: false,
	}); err != nil {
		opts.Logger.Warn("failed to set viewport", zap.Error(err))
	}

	e := &Executor{
		browser: browser,
		page:    page,
		timeout: opts.ActionTimeout,
		log:     opts.Logger,
	}
	if opts.StartURL != "" {
		if err := e.Navigate(ctx, opts.StartURL); err != nil {
			browser.Close()
			return nil, err
		}
	}
	return e, nil
}

// Close tears down the browser session.
func (e *Executor) Close() error {
	return e.browser.Close()
}

// Navigate opens url and waits for the load event.
func (e *Executor) Navigate(ctx context.Context, url string) error {
	page := e.page.Context(ctx).Timeout(e.timeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		e.log.Warn("page load wait failed", zap.String("url", url), zap.Error(err))
	}
	return nil
}

// Dispatch performs one action. kind follows the closed trajectory
// vocabulary; unknown kinds are errors.
func (e *Executor) Dispatch(ctx context.Context, kind string, input map[string]any) error {
	page := e.page.Context(ctx).Timeout(e.timeout)

	switch kind {
	case "click":
		x, err := intArg(input, "x")
		if err != nil {
			return err
		}
		y, err := intArg(input, "y")
		if err != nil {
			return err
		}
		if err := page.Mouse.MoveTo(proto.NewPoint(float64(x), float64(y))); err != nil {
			return fmt.Errorf("mouse move to (%d, %d): %w", x, y, err)
		}
		if err := page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("click at (%d, %d): %w", x, y, err)
		}

	case "type":
		text, err := stringArg(input, "text")
		if err != nil {
			return err
		}
		if err := page.InsertText(text); err != nil {
			return fmt.Errorf("insert text: %w", err)
		}

	case "key":
		name, err := stringArg(input, "key")
		if err != nil {
			return err
		}
		k, err := keyFor(name)
		if err != nil {
			return err
		}
		if err := page.Keyboard.Press(k); err != nil {
			return fmt.Errorf("press %s: %w", name, err)
		}

	case "wait":
		seconds, err := floatArg(input, "seconds")
		if err != nil {
			return err
		}
		select {
		case <-time.After(time.Duration(seconds * float64(time.Second))):
		case <-ctx.Done():
			return ctx.Err()
		}

	case "scroll":
		dir, err := stringArg(input, "direction")
		if err != nil {
			return err
		}
		offset := float64(scrollStepPx)
		switch dir {
		case "down":
		case "up":
			offset = -offset
		default:
			return fmt.Errorf("unsupported scroll direction %q", dir)
		}
		if err := page.Mouse.Scroll(0, offset, 5); err != nil {
			return fmt.Errorf("scroll %s: %w", dir, err)
		}

	default:
		return fmt.Errorf("unknown action kind %q", kind)
	}

	e.log.Debug("dispatched action", zap.String("kind", kind))
	return nil
}

// CaptureState screenshots the viewport and decodes it for hashing.
func (e *Executor) CaptureState(ctx context.Context) (image.Image, error) {
	page := e.page.Context(ctx).Timeout(e.timeout)
	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return img, nil
}
