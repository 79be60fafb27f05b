package backend

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// Popup opens the external login window of an OAuth provider
type Popup interface {
	// Open shows url and returns immediately. It fails fast when no window
	// could be opened.
	Open(ctx context.Context, url string) (PopupWindow, error)
}

// PopupWindow is an open login window. The caller polls Closed.
type PopupWindow interface {
	Closed() bool
	Close()
}

// ChromePopup opens OAuth pages in a visible Chrome window via chromedp
type ChromePopup struct {
	userDataDir string
	execPath    string
	logf        func(string, ...any)
}

// NewChromePopup creates a popup opener. userDataDir keeps provider
// cookies between logins; execPath may be empty to auto-detect Chrome.
// Browser protocol chatter goes to logf, which may be nil.
func NewChromePopup(userDataDir, execPath string, logf func(string, ...any)) *ChromePopup {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &ChromePopup{userDataDir: userDataDir, execPath: execPath, logf: logf}
}

type chromeWindow struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	closed    atomic.Bool
	closeOnce sync.Once
}

func (p *ChromePopup) Open(ctx context.Context, url string) (PopupWindow, error) {
	if p.userDataDir != "" {
		if err := os.MkdirAll(p.userDataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create browser data dir: %w", err)
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(520, 640),
	)
	if p.userDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(p.userDataDir))
	}
	if p.execPath != "" {
		opts = append(opts, chromedp.ExecPath(p.execPath))
	}

	// The window outlives the call that opened it, so it is not tied to ctx
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(p.logf))

	w := &chromeWindow{ctx: browserCtx, cancel: cancel, allocCancel: allocCancel}

	if err := chromedp.Run(browserCtx, chromedp.Navigate(url)); err != nil {
		w.Close()
		return nil, fmt.Errorf("%w: %v", ErrPopupBlocked, err)
	}

	// chromedp only attaches to the popup's page, so a detach means the
	// user closed it
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if _, ok := ev.(*target.EventDetachedFromTarget); ok {
			w.closed.Store(true)
		}
	})

	go func() {
		<-browserCtx.Done()
		w.closed.Store(true)
	}()

	if err := ctx.Err(); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (w *chromeWindow) Closed() bool {
	if w.closed.Load() {
		return true
	}

	// A user closing the last tab leaves the browser with no page targets
	infos, err := chromedp.Targets(w.ctx)
	if err != nil {
		w.closed.Store(true)
		return true
	}
	for _, info := range infos {
		if info.Type == "page" {
			return false
		}
	}
	w.closed.Store(true)
	return true
}

func (w *chromeWindow) Close() {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		w.cancel()
		w.allocCancel()
	})
}
