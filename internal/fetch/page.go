package fetch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Page is the readable text of a job posting.
type Page struct {
	URL      string
	Platform Platform
	Text     string
	// Rendered is set when the text came from the headless browser.
	Rendered bool
}

// Page fetches urlStr and extracts the posting text using the platform's selectors. When the
// result looks like a client-rendered shell and the browser is enabled, the page is rendered
// and extracted again.
func (f *Fetcher) Page(ctx context.Context, urlStr string) (*Page, error) {
	if f.cache != nil {
		if page, ok := f.cache.get(urlStr); ok {
			f.log.WithField("url", urlStr).Debug("page served from cache")
			return page, nil
		}
	}

	platform := DetectPlatform(urlStr)
	content := ContentSelectors(platform)
	noise := NoiseSelectors(platform)
	entry := f.log.WithFields(logrus.Fields{"url": urlStr, "platform": platform})

	var text string
	result, err := f.Get(ctx, urlStr)
	if err != nil {
		if !f.opts.UseBrowser || result == nil {
			return nil, err
		}
		entry.WithError(err).Warn("HTTP fetch failed, trying browser")
	} else {
		text, err = ExtractMainText(result.HTML, content, noise...)
		if err != nil {
			return nil, &Error{URL: urlStr, Message: "failed to extract text", Cause: err}
		}
	}

	page := &Page{URL: urlStr, Platform: platform, Text: text}

	if NeedsBrowser(text) && f.opts.UseBrowser {
		entry.WithField("chars", len(text)).Info("content too short, rendering in browser")
		html, rerr := f.renderer.Render(ctx, urlStr)
		if rerr != nil {
			if text == "" {
				return nil, &Error{URL: urlStr, Message: "browser rendering failed", Cause: rerr}
			}
			entry.WithError(rerr).Warn("browser rendering failed, keeping HTTP content")
		} else if rendered, xerr := ExtractMainText(html, content, noise...); xerr == nil && len(rendered) > len(text) {
			page.Text = rendered
			page.Rendered = true
		}
	}

	if page.Text == "" {
		return nil, &Error{URL: urlStr, Message: fmt.Sprintf("no text found on %s page", platform)}
	}

	entry.WithFields(logrus.Fields{"chars": len(page.Text), "rendered": page.Rendered}).Debug("page extracted")
	if f.cache != nil {
		f.cache.put(urlStr, page)
	}
	return page, nil
}
