package probe

import (
	"context"
	"encoding/base64"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/anstrom/netenum/internal/config"
)

// PageRenderer renders a URL to a PNG.
type PageRenderer interface {
	Render(ctx context.Context, url string) ([]byte, error)
}

// ChromeRenderer drives a headless Chromium through the DevTools protocol.
// Each render gets its own browser process so a hung page cannot leak into
// the next one.
type ChromeRenderer struct {
	width    int
	height   int
	timeout  time.Duration
	execPath string
}

// NewChromeRenderer creates a renderer from the render configuration.
func NewChromeRenderer(cfg config.RenderConfig) *ChromeRenderer {
	return &ChromeRenderer{
		width:    cfg.Width,
		height:   cfg.Height,
		timeout:  cfg.Timeout,
		execPath: cfg.ChromePath,
	}
}

// Render implements PageRenderer.
func (r *ChromeRenderer) Render(ctx context.Context, target string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.WindowSize(r.width, r.height),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var png []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(r.width), int64(r.height)),
		chromedp.Navigate(target),
		chromedp.CaptureScreenshot(&png),
	)
	if err != nil {
		return nil, err
	}
	return png, nil
}

// EncodeScreenshot returns png as base64, percent-encoded so it can be
// embedded in a URL or a plain-text document.
func EncodeScreenshot(png []byte) string {
	return url.QueryEscape(base64.StdEncoding.EncodeToString(png))
}
