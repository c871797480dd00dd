package applier

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Session is one live browser page under automation control. The production
// implementation drives headless Chrome; tests substitute a fake.
type Session interface {
	// Navigate loads the given URL and waits for the page to be ready.
	Navigate(ctx context.Context, url string) error
	// Fill sets the value of the first element matching selector.
	// Returns ErrFieldNotFound when no element matches.
	Fill(ctx context.Context, selector, value string) error
	// Click scrolls the first visible match into view and clicks it.
	Click(ctx context.Context, selector string) error
	// Upload attaches a local file to the first matching file input.
	Upload(ctx context.Context, selector, path string) error
	// HTML returns the current full page markup.
	HTML(ctx context.Context) (string, error)
	// Screenshot captures a full-page visual snapshot.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the underlying browser resources.
	Close() error
}

// SessionFactory opens a fresh Session for one application attempt.
type SessionFactory func(ctx context.Context, opts Options) (Session, error)

// browserSession drives a headless Chrome page via chromedp.
// Requires Chrome/Chromium to be installed on the system.
type browserSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opts        Options
}

// NewBrowserSession launches a headless browser context. It is the default
// SessionFactory used outside of tests.
func NewBrowserSession(ctx context.Context, opts Options) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)

	browserCtx, cancel := chromedp.NewContext(allocCtx)

	return &browserSession{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		opts:        opts,
	}, nil
}

// run executes actions against the page with a bounded wait. Every browser
// operation must have a ceiling; unbounded blocking on a third-party page
// is a design defect.
func (s *browserSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

func (s *browserSession) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx, s.opts.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Give JavaScript-rendered forms a moment to settle
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		return &AutomationError{URL: url, Message: "navigation failed", Cause: err}
	}
	return nil
}

func (s *browserSession) Fill(ctx context.Context, selector, value string) error {
	found, err := s.exists(ctx, selector)
	if err != nil {
		return fmt.Errorf("probe %s: %w", selector, err)
	}
	if !found {
		return ErrFieldNotFound
	}
	if err := s.run(ctx, s.opts.FieldTimeout,
		chromedp.SetValue(selector, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (s *browserSession) Click(ctx context.Context, selector string) error {
	found, err := s.exists(ctx, selector)
	if err != nil {
		return fmt.Errorf("probe %s: %w", selector, err)
	}
	if !found {
		return ErrFieldNotFound
	}
	if err := s.run(ctx, s.opts.FieldTimeout,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
	); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (s *browserSession) Upload(ctx context.Context, selector, path string) error {
	found, err := s.exists(ctx, selector)
	if err != nil {
		return fmt.Errorf("probe %s: %w", selector, err)
	}
	if !found {
		return ErrFieldNotFound
	}
	if err := s.run(ctx, s.opts.FieldTimeout,
		chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("upload %s: %w", selector, err)
	}
	return nil
}

func (s *browserSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.opts.FieldTimeout,
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return "", fmt.Errorf("capture markup: %w", err)
	}
	return html, nil
}

func (s *browserSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.opts.NavigationTimeout,
		chromedp.FullScreenshot(&buf, 90),
	); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

func (s *browserSession) Close() error {
	s.cancel()
	s.allocCancel()
	return nil
}

// exists probes the DOM for a selector without waiting for it to appear.
func (s *browserSession) exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	err := s.run(ctx, s.opts.FieldTimeout,
		chromedp.Evaluate(fmt.Sprintf("document.querySelector(%q) !== null", selector), &found),
	)
	return found, err
}
