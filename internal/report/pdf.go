package report

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/yorozuya-cybersecurity/yoro-audit/pkg/utils"
)

// ErrChromeNotFound is returned when no Chrome/Chromium binary can be started.
var ErrChromeNotFound = errors.New("chrome/chromium not found")

const pdfTimeout = 60 * time.Second

// WritePDF prints an already-rendered HTML report to PDF with headless Chrome.
func WritePDF(ctx context.Context, htmlPath, pdfPath string) error {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", htmlPath, err)
	}

	ctx, cancel := context.WithTimeout(ctx, pdfTimeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
	)...)
	defer cancelAlloc()

	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	var pdf []byte
	err = chromedp.Run(cctx,
		chromedp.Navigate("file://"+filepath.ToSlash(abs)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("chromedp: %w: %v", ErrChromeNotFound, err)
		}
		return fmt.Errorf("chromedp: print %s: %w", filepath.Base(htmlPath), err)
	}
	return utils.WriteFile(pdfPath, pdf)
}
