// Package browser manages a shared headless Chrome instance for the tools
// that need one. The browser is expensive to launch, so it is refcounted:
// the first acquire launches it, the last release tears it down.
package browser

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// LaunchFunc starts a browser and returns it with its teardown function.
type LaunchFunc func(headless bool) (*rod.Browser, func(), error)

// Pool hands out a shared browser instance with reference counting.
type Pool struct {
	mu       sync.Mutex
	headless bool
	launch   LaunchFunc

	browser  *rod.Browser
	teardown func()
	refs     int
}

// Option configures a Pool.
type Option func(*Pool)

// WithLaunchFunc replaces the default launcher, mainly for tests.
func WithLaunchFunc(fn LaunchFunc) Option {
	return func(p *Pool) { p.launch = fn }
}

// NewPool builds a pool. No browser is launched until the first Acquire.
func NewPool(headless bool, opts ...Option) *Pool {
	p := &Pool{headless: headless, launch: defaultLaunch}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns the shared browser, launching it on the first call.
// Every successful Acquire must be paired with exactly one Release.
func (p *Pool) Acquire() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser == nil {
		browser, teardown, err := p.launch(p.headless)
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		p.browser = browser
		p.teardown = teardown
		slog.Info("browser launched", "headless", p.headless)
	}

	p.refs++
	return p.browser, nil
}

// Release drops one reference. When the count reaches zero the browser is
// torn down; the next Acquire launches a fresh one.
func (p *Pool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.refs == 0 {
		slog.Warn("browser release without matching acquire")
		return
	}
	p.refs--
	if p.refs == 0 {
		p.teardownLocked()
	}
}

// Refs reports the current reference count.
func (p *Pool) Refs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refs
}

// Close tears the browser down regardless of outstanding references.
// Meant for process shutdown.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.refs > 0 {
		slog.Warn("closing browser pool with outstanding references", "refs", p.refs)
	}
	p.refs = 0
	p.teardownLocked()
}

func (p *Pool) teardownLocked() {
	if p.browser == nil {
		return
	}
	if p.teardown != nil {
		p.teardown()
	}
	p.browser = nil
	p.teardown = nil
	slog.Info("browser closed")
}

func defaultLaunch(headless bool) (*rod.Browser, func(), error) {
	l := launcher.New().Headless(headless)
	url, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connect to chrome: %w", err)
	}

	teardown := func() {
		if err := browser.Close(); err != nil {
			slog.Warn("browser close failed", "error", err)
		}
		l.Kill()
	}
	return browser, teardown, nil
}
