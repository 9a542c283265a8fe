package breach

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeRenderer loads the page in headless Chrome and returns the document
// HTML once the listing rows are present.
func ChromeRenderer(userAgent string, timeout time.Duration) Renderer {
	return func(ctx context.Context, pageURL string) (string, error) {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
		)
		if userAgent != "" {
			opts = append(opts, chromedp.UserAgent(userAgent))
		}

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
		defer cancelAlloc()

		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
		defer cancelBrowser()

		if timeout > 0 {
			var cancel context.CancelFunc
			browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
			defer cancel()
		}

		var html string
		err := chromedp.Run(browserCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady("tr.data-row", chromedp.ByQuery),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			return "", fmt.Errorf("chromedp %s: %w", pageURL, err)
		}
		return html, nil
	}
}
