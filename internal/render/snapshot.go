package render

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"tradescope/internal/logger"
)

// ErrExportDisabled is returned when PNG export is switched off.
var ErrExportDisabled = errors.New("png export disabled")

// Exporter renders HTML to PNG with headless Chrome.
type Exporter struct {
	Enabled bool
	Width   int
	Height  int
	Timeout time.Duration
	// Settle is the wait between page ready and the screenshot.
	Settle time.Duration

	headlessOnce sync.Once
	headlessErr  error
}

func NewExporter(enabled bool, width, height int, timeout time.Duration) *Exporter {
	return &Exporter{Enabled: enabled, Width: width, Height: height, Timeout: timeout, Settle: 300 * time.Millisecond}
}

// EnsureHeadlessAvailable starts a browser once and caches the outcome.
func (e *Exporter) EnsureHeadlessAvailable(ctx context.Context) error {
	e.headlessOnce.Do(func() {
		parent, cancel := chromedp.NewContext(ctx)
		defer cancel()
		e.headlessErr = chromedp.Run(parent)
		if e.headlessErr != nil {
			logger.Warnf("headless chrome unavailable: %v", e.headlessErr)
		}
	})
	return e.headlessErr
}

// PNG renders html at the configured viewport and returns a full-page
// screenshot.
func (e *Exporter) PNG(ctx context.Context, html []byte) ([]byte, error) {
	if e == nil || !e.Enabled {
		return nil, ErrExportDisabled
	}
	if err := e.EnsureHeadlessAvailable(ctx); err != nil {
		return nil, err
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	timeoutCtx, cancelTimeout := context.WithTimeout(parent, timeout)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(e.Width), int64(e.Height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(e.Settle),
		chromedp.FullScreenshot(&screenshot, 100),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
