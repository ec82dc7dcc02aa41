package rod

import (
	"sync"

	"github.com/fwojciec/docharvest"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultMaxPages is the number of rendered pages after which the browser
// is replaced.
const DefaultMaxPages = 75

// session is one running Chrome process and the connection to it.
type session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func (s *session) close() error {
	if s == nil {
		return nil
	}
	err := s.browser.Close()
	s.launcher.Kill()
	return err
}

// launch starts headless Chrome. Images are not loaded since only the
// document markup is read back.
func launch() (*session, error) {
	l := launcher.New().
		Headless(true).
		Leakless(true).
		Set("disable-dev-shm-usage").
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("blink-settings", "imagesEnabled=false")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, docharvest.WrapError(docharvest.EEXTERNAL, err, "launching browser")
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, docharvest.WrapError(docharvest.EEXTERNAL, err, "connecting to browser")
	}
	return &session{browser: b, launcher: l}, nil
}

// BrowserManager hands out a shared browser and swaps it for a fresh process
// once it has rendered maxPages pages, so a long crawl does not accumulate
// Chrome's memory growth.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	mu       sync.Mutex
	current  *session
	rendered int64
	maxPages int64
	recycles int64
	closed   bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets the recycling threshold. Non-positive values are ignored.
func WithMaxPages(n int64) ManagerOption {
	return func(bm *BrowserManager) {
		if n > 0 {
			bm.maxPages = n
		}
	}
}

// NewBrowserManager launches the first browser.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(bm)
	}

	s, err := launch()
	if err != nil {
		return nil, err
	}
	bm.current = s
	return bm, nil
}

// Browser returns the browser to open the next page in. If the threshold
// was reached a replacement is launched first; when that fails the old
// browser keeps serving and the swap is retried on the next call.
func (bm *BrowserManager) Browser() *rod.Browser {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if !bm.closed && bm.rendered >= bm.maxPages {
		if next, err := launch(); err == nil {
			_ = bm.current.close()
			bm.current = next
			bm.rendered = 0
			bm.recycles++
		}
	}
	if bm.current == nil {
		return nil
	}
	return bm.current.browser
}

// IncrementPageCount records a rendered page.
func (bm *BrowserManager) IncrementPageCount() {
	bm.mu.Lock()
	bm.rendered++
	bm.mu.Unlock()
}

// Recycles returns how many times the browser has been replaced.
func (bm *BrowserManager) Recycles() int64 {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.recycles
}

// LauncherPID returns the PID of the running browser, 0 once closed.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.current == nil {
		return 0
	}
	return bm.current.launcher.PID()
}

// Close stops the browser. Later calls are no-ops.
func (bm *BrowserManager) Close() error {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.closed {
		return nil
	}
	bm.closed = true
	err := bm.current.close()
	bm.current = nil
	return err
}
