package browser

import (
	"context"
	"net/url"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// OpenTestPage launches a headless Chrome through a Manager and returns a
// tab showing html. The test is skipped when no browser is installed or it
// cannot start. Chrome is closed on cleanup.
func OpenTestPage(t testing.TB, html string) *rod.Page {
	t.Helper()

	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("browser: no Chrome or Chromium found")
	}

	mgr := NewManager(Config{Bin: bin, Headless: true, NoSandbox: true})
	b, err := mgr.Start(context.Background())
	if err != nil {
		t.Skipf("browser: launch %s: %v", bin, err)
	}
	t.Cleanup(func() { mgr.Close() })

	page, err := b.Page(proto.TargetCreateTarget{URL: "data:text/html;charset=utf-8," + url.PathEscape(html)})
	if err != nil {
		t.Fatalf("browser: open test page: %v", err)
	}
	if err := page.WaitLoad(); err != nil {
		t.Fatalf("browser: load test page: %v", err)
	}
	return page
}
