// Package chrome renders invitation pages to PDF with headless Chrome.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"invitegen/internal/infra/logging"
)

// Options configures the browser and its tab pool.
type Options struct {
	ExecPath    string
	NoSandbox   bool
	PoolSize    int
	UserDataDir string
}

// Tab is a browser tab leased from the pool.
type Tab struct {
	Ctx    context.Context
	cancel context.CancelFunc
}

// Stats is a snapshot of the pool.
type Stats struct {
	Enabled     bool      `json:"enabled"`
	Capacity    int       `json:"capacity"`
	Idle        int       `json:"idle"`
	InUse       int       `json:"in_use"`
	ProfileDir  string    `json:"profile_dir"`
	Restarts    int       `json:"restarts"`
	LastRestart time.Time `json:"last_restart,omitempty"`
}

// Pool shares one browser between a bounded number of tabs.
type Pool struct {
	opts Options
	sem  chan struct{}

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	profileDir    string
	closed        bool
	restarts      int
	lastRestart   time.Time
}

// NewPool prepares the browser allocator. Chrome itself starts on first use.
func NewPool(opts Options) (*Pool, error) {
	if opts.PoolSize <= 0 {
		return nil, errors.New("chrome: pool disabled")
	}
	p := &Pool{opts: opts, sem: make(chan struct{}, opts.PoolSize)}
	if err := p.start(); err != nil {
		return nil, err
	}
	for i := 0; i < opts.PoolSize; i++ {
		p.sem <- struct{}{}
	}
	logging.Info("Chrome pool ready", "size", opts.PoolSize, "profile_dir", p.profileDir)
	return p, nil
}

func (p *Pool) start() error {
	dir, err := createProfileDir(p.opts.UserDataDir)
	if err != nil {
		return err
	}

	allocatorOptions := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(dir),
		// Software rendering keeps minimal containers away from Vulkan/ANGLE.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if p.opts.ExecPath != "" {
		allocatorOptions = append(allocatorOptions, chromedp.ExecPath(p.opts.ExecPath))
	}
	if p.opts.NoSandbox {
		allocatorOptions = append(allocatorOptions, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	p.profileDir = dir
	p.browserCtx = browserCtx
	p.cancelAlloc = cancelAlloc
	p.cancelBrowser = cancelBrowser
	return nil
}

func (p *Pool) stop() {
	if p.cancelBrowser != nil {
		p.cancelBrowser()
		p.cancelBrowser = nil
	}
	if p.cancelAlloc != nil {
		p.cancelAlloc()
		p.cancelAlloc = nil
	}
	if p.profileDir != "" {
		_ = os.RemoveAll(p.profileDir)
	}
}

// Acquire waits for a free slot and opens a new tab.
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errors.New("chrome: pool closed")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.sem:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.sem <- struct{}{}
		return nil, errors.New("chrome: pool closed")
	}
	tabCtx, cancel := chromedp.NewContext(p.browserCtx)
	return &Tab{Ctx: tabCtx, cancel: cancel}, nil
}

// Release closes the tab and returns its slot.
func (p *Pool) Release(tab *Tab, renderErr error) {
	if tab != nil && tab.cancel != nil {
		tab.cancel()
	}
	if renderErr != nil && !IsSessionInterrupted(renderErr) {
		logging.Debug("Chrome tab released after error", "error", renderErr)
	}
	p.sem <- struct{}{}
}

// Restart replaces the browser and its profile directory.
func (p *Pool) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("chrome: pool closed")
	}
	p.stop()
	if err := p.start(); err != nil {
		return err
	}
	p.restarts++
	p.lastRestart = time.Now()
	logging.Warn("Chrome pool restarted", "restarts", p.restarts)
	return nil
}

// Close shuts the browser down. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.stop()
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return Stats{Restarts: p.restarts, LastRestart: p.lastRestart}
	}
	idle := len(p.sem)
	return Stats{
		Enabled:     true,
		Capacity:    cap(p.sem),
		Idle:        idle,
		InUse:       cap(p.sem) - idle,
		ProfileDir:  p.profileDir,
		Restarts:    p.restarts,
		LastRestart: p.lastRestart,
	}
}

func createProfileDir(base string) (string, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0o700); err != nil {
			return "", fmt.Errorf("chrome: profile base: %w", err)
		}
	}
	dir, err := os.MkdirTemp(base, "invitegen-chrome-*")
	if err != nil {
		return "", fmt.Errorf("chrome: profile dir: %w", err)
	}
	return dir, nil
}

// IsSessionInterrupted reports errors after which the browser session should
// be considered broken.
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "target closed") ||
		strings.Contains(msg, "session closed") ||
		strings.Contains(msg, "websocket: close")
}
