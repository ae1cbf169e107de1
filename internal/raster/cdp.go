package raster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// CDPCapturer screenshots DOM elements of a Chromium tab over the DevTools protocol.
type CDPCapturer struct {
	cdpURL    string
	tabFilter string
	timeout   time.Duration

	mu          sync.RWMutex
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	targetID    target.ID
}

// NewCDPCapturer creates a capturer for the browser at cdpURL. Only page
// targets whose URL contains tabFilter are considered.
func NewCDPCapturer(cdpURL, tabFilter string, timeout time.Duration) *CDPCapturer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CDPCapturer{cdpURL: cdpURL, tabFilter: tabFilter, timeout: timeout}
}

// Connect attaches to the first matching page target. It is a no-op while
// the current tab is still alive.
func (c *CDPCapturer) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *CDPCapturer) connectLocked(ctx context.Context) error {
	if c.tabCtx != nil {
		if c.tabCtx.Err() == nil {
			return nil
		}
		slog.Warn("chart tab detached", "target_id", c.targetID)
		c.closeLocked()
	}

	slog.Info("connecting to chromium", "url", c.cdpURL)
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), c.cdpURL)

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	connCtx, connCancel := context.WithTimeout(browserCtx, c.timeout)
	defer connCancel()
	stop := context.AfterFunc(ctx, connCancel)
	defer stop()

	if err := chromedp.Run(connCtx); err != nil {
		allocCancel()
		return fmt.Errorf("raster: connect to browser: %w", err)
	}
	targets, err := chromedp.Targets(connCtx)
	if err != nil {
		allocCancel()
		return fmt.Errorf("raster: enumerate targets: %w", err)
	}

	for _, t := range targets {
		if t.Type != "page" || !c.matchesTabURL(t.URL) {
			continue
		}
		tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithTargetID(t.TargetID))
		if err := chromedp.Run(tabCtx); err != nil {
			tabCancel()
			slog.Warn("failed to attach to tab", "target_id", t.TargetID, "url", t.URL, "error", err)
			continue
		}
		c.allocCancel = allocCancel
		c.tabCtx = tabCtx
		c.tabCancel = tabCancel
		c.targetID = t.TargetID
		slog.Info("attached to chart tab", "target_id", t.TargetID, "url", t.URL)
		return nil
	}

	allocCancel()
	return fmt.Errorf("raster: no page target matching tab filter %q", c.tabFilter)
}

// Close detaches from the tab. The browser itself keeps running.
func (c *CDPCapturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

func (c *CDPCapturer) closeLocked() {
	if c.tabCancel != nil {
		c.tabCancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	c.tabCtx, c.tabCancel, c.allocCancel = nil, nil, nil
	c.targetID = ""
}

// ensureConnected returns the live tab context, attaching first when the
// capturer was never connected or its tab went away.
func (c *CDPCapturer) ensureConnected(ctx context.Context) (context.Context, error) {
	c.mu.RLock()
	tabCtx := c.tabCtx
	c.mu.RUnlock()
	if tabCtx != nil && tabCtx.Err() == nil {
		return tabCtx, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	return c.tabCtx, nil
}

// Capture screenshots the element at Scale over a white default background.
// The element lookup happens once, before any rendering work. A capturer
// that is not attached connects first, and a tab lost mid-capture gets one
// reattach and retry.
func (c *CDPCapturer) Capture(ctx context.Context, elementID string) (image.Image, error) {
	tabCtx, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	img, err := c.capture(ctx, tabCtx, elementID)
	if err == nil || tabCtx.Err() == nil || ctx.Err() != nil {
		return img, err
	}

	slog.Warn("chart tab lost during capture, reconnecting", "element_id", elementID, "error", err)
	tabCtx, err = c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	return c.capture(ctx, tabCtx, elementID)
}

func (c *CDPCapturer) capture(ctx, tabCtx context.Context, elementID string) (image.Image, error) {
	runCtx, cancel := context.WithTimeout(tabCtx, c.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var exists bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(elementExistsJS(elementID), &exists)); err != nil {
		return nil, fmt.Errorf("raster: lookup %q: %w", elementID, err)
	}
	if !exists {
		return nil, &ElementNotFoundError{ElementID: elementID}
	}

	white := &cdp.RGBA{R: 255, G: 255, B: 255, A: 1}
	var buf []byte
	err := chromedp.Run(runCtx,
		emulation.SetDefaultBackgroundColorOverride().WithColor(white),
		chromedp.ScreenshotScale(elementByIDJS(elementID), Scale, &buf, chromedp.ByJSPath),
	)
	if resetErr := chromedp.Run(tabCtx, emulation.SetDefaultBackgroundColorOverride()); resetErr != nil {
		slog.Debug("background override reset failed", "element_id", elementID, "error", resetErr)
	}
	if err != nil {
		return nil, fmt.Errorf("raster: screenshot %q: %w", elementID, err)
	}

	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("raster: decode screenshot %q: %w", elementID, err)
	}
	return img, nil
}

func (c *CDPCapturer) matchesTabURL(url string) bool {
	if c.tabFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(c.tabFilter))
}

// elementByIDJS resolves the element by its literal id, so ids that are not
// valid CSS identifiers still match.
func elementByIDJS(elementID string) string {
	id, _ := json.Marshal(elementID)
	return fmt.Sprintf("document.getElementById(%s)", id)
}

func elementExistsJS(elementID string) string {
	return elementByIDJS(elementID) + " !== null"
}
