package chromium

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/yungbote/paperforge-backend/internal/logger"
)

// PDFRenderer converts an HTML document into a PDF binary.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, htmlDoc string) ([]byte, error)
	Close()
}

// browserHandle is one live headless-browser instance.
type browserHandle interface {
	PrintPDF(ctx context.Context, htmlDoc string) ([]byte, error)
	Close()
}

type launchFunc func() (browserHandle, error)

type PoolConfig struct {
	Size                  int
	MaxRendersPerInstance int
	RenderTimeout         time.Duration
}

// Pool keeps a fixed set of browser handles issued round-robin. A handle is
// torn down and relaunched after MaxRendersPerInstance uses, so memory growth
// inside a long-lived browser never accumulates past the recycle horizon.
type Pool struct {
	log    *logger.Logger
	cfg    PoolConfig
	launch launchFunc

	mu    sync.Mutex
	next  int
	slots []*poolSlot
}

type poolSlot struct {
	mu     sync.Mutex
	handle browserHandle
	uses   int
}

func NewPool(baseLog *logger.Logger, cfg PoolConfig) *Pool {
	return newPool(baseLog, cfg, launchChrome)
}

func newPool(baseLog *logger.Logger, cfg PoolConfig, launch launchFunc) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 2
	}
	if cfg.MaxRendersPerInstance <= 0 {
		cfg.MaxRendersPerInstance = 50
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 90 * time.Second
	}
	slots := make([]*poolSlot, cfg.Size)
	for i := range slots {
		slots[i] = &poolSlot{}
	}
	return &Pool{
		log:    baseLog.With("component", "ChromiumPool"),
		cfg:    cfg,
		launch: launch,
		slots:  slots,
	}
}

func (p *Pool) RenderPDF(ctx context.Context, htmlDoc string) ([]byte, error) {
	p.mu.Lock()
	slot := p.slots[p.next%len(p.slots)]
	p.next++
	p.mu.Unlock()

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.handle != nil && slot.uses >= p.cfg.MaxRendersPerInstance {
		p.log.Debug("Recycling browser instance", "uses", slot.uses)
		slot.handle.Close()
		slot.handle = nil
		slot.uses = 0
	}
	if slot.handle == nil {
		handle, err := p.launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		slot.handle = handle
	}

	renderCtx, cancel := context.WithTimeout(ctx, p.cfg.RenderTimeout)
	defer cancel()
	pdf, err := slot.handle.PrintPDF(renderCtx, htmlDoc)
	if err != nil {
		// A failed render may leave the browser wedged; drop the handle so
		// the next use relaunches.
		slot.handle.Close()
		slot.handle = nil
		slot.uses = 0
		return nil, err
	}
	slot.uses++
	return pdf, nil
}

func (p *Pool) Close() {
	for _, slot := range p.slots {
		slot.mu.Lock()
		if slot.handle != nil {
			slot.handle.Close()
			slot.handle = nil
		}
		slot.mu.Unlock()
	}
}

type chromeHandle struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func launchChrome() (browserHandle, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}
	return &chromeHandle{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

func (h *chromeHandle) PrintPDF(ctx context.Context, htmlDoc string) ([]byte, error) {
	tabCtx, cancel := chromedp.NewContext(h.browserCtx)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlDoc).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.4).
				WithMarginBottom(0.4).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

func (h *chromeHandle) Close() {
	h.browserCancel()
	h.allocCancel()
}
