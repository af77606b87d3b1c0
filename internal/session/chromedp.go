// Package session provides per-worker browser sessions backed by chromedp.
// Each worker owns one Chrome instance for its whole lifetime; the tab is
// reused across navigations so cookies and anti-bot state persist the way
// they would for a human visitor.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
)

const defaultReadySelector = `[data-testid="review-score-component"]`

// Config controls browser behavior for one session.
type Config struct {
	Headless      bool
	UserAgent     string
	NavTimeout    time.Duration
	ReadySelector string
	WarmupURL     string
}

func (cfg Config) withDefaults() Config {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	if cfg.ReadySelector == "" {
		cfg.ReadySelector = defaultReadySelector
	}
	return cfg
}

// Chrome is one worker's browser. It is not safe for concurrent use; the
// owning worker is its only caller.
type Chrome struct {
	cfg         Config
	workerID    int
	browser     context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewChrome launches a browser for one worker. The returned session must be
// closed by the caller; Close releases the Chrome process.
func NewChrome(ctx context.Context, workerID int, cfg Config, logger *zap.Logger) (*Chrome, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browser, cancel := chromedp.NewContext(allocCtx)

	// Start the browser now so the worker fails fast on a broken Chrome
	// install instead of on its first task.
	startup := []chromedp.Action{chromedp.ActionFunc(func(context.Context) error { return nil })}
	if cfg.UserAgent != "" {
		startup = append(startup, emulation.SetUserAgentOverride(cfg.UserAgent))
	}
	if err := chromedp.Run(browser, startup...); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser for worker %d: %w", workerID, err)
	}

	return &Chrome{
		cfg:         cfg,
		workerID:    workerID,
		browser:     browser,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger.With(zap.Int("worker_id", workerID)),
	}, nil
}

// Navigate loads url, waits for the ready selector, and returns the
// rendered DOM. A deadline hit while the caller's context is still live is
// reported as a navigation timeout; caller cancellation is reported as the
// caller's context error.
func (c *Chrome) Navigate(ctx context.Context, url string) (string, error) {
	navCtx, navCancel := context.WithTimeout(c.browser, c.cfg.NavTimeout)
	defer navCancel()

	// Propagate caller cancellation into the browser run.
	stop := context.AfterFunc(ctx, navCancel)
	defer stop()

	var html string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(c.cfg.ReadySelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || navCtx.Err() != nil {
			c.logger.Debug("navigation timed out", zap.String("url", url))
			return "", fmt.Errorf("navigate %s: %w", url, harvest.ErrNavigateTimeout)
		}
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	return html, nil
}

// Warmup visits the configured landing page so the session carries normal
// cookies before the first real target. A missing warmup URL is a no-op;
// warmup failures are non-fatal and surfaced to the caller as errors.
func (c *Chrome) Warmup(ctx context.Context) error {
	if c.cfg.WarmupURL == "" {
		return nil
	}
	navCtx, navCancel := context.WithTimeout(c.browser, c.cfg.NavTimeout)
	defer navCancel()
	stop := context.AfterFunc(ctx, navCancel)
	defer stop()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(c.cfg.WarmupURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("warmup %s: %w", c.cfg.WarmupURL, err)
	}
	return nil
}

// Close shuts the browser down and releases the Chrome process.
func (c *Chrome) Close() error {
	c.cancel()
	c.allocCancel()
	return nil
}

// Factory adapts NewChrome to the pool's session factory shape.
func Factory(cfg Config, logger *zap.Logger) func(ctx context.Context, workerID int) (harvest.Session, error) {
	return func(ctx context.Context, workerID int) (harvest.Session, error) {
		return NewChrome(ctx, workerID, cfg, logger)
	}
}
