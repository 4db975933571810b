package chrome

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"invitegen/internal/render"
)

func TestCreateProfileDir_DefaultAndCustomBase(t *testing.T) {
	dir1, err := createProfileDir("")
	if err != nil {
		t.Fatalf("createProfileDir default base failed: %v", err)
	}
	defer os.RemoveAll(dir1)
	if _, err := os.Stat(dir1); err != nil {
		t.Fatalf("expected created dir to exist: %v", err)
	}

	customBase := filepath.Join(t.TempDir(), "profiles")
	dir2, err := createProfileDir(customBase)
	if err != nil {
		t.Fatalf("createProfileDir custom base failed: %v", err)
	}
	if filepath.Dir(dir2) != customBase {
		t.Fatalf("expected profile dir under custom base %q, got %q", customBase, dir2)
	}
}

func TestCreateProfileDir_InvalidBase(t *testing.T) {
	if _, err := createProfileDir("/dev/null/x"); err == nil {
		t.Fatalf("expected error for invalid base dir")
	}
}

func TestPoolAcquireReleaseAndClose(t *testing.T) {
	p := &Pool{sem: make(chan struct{}, 1), browserCtx: context.Background()}
	p.sem <- struct{}{}

	tab, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected acquire success, got %v", err)
	}
	if len(p.sem) != 0 {
		t.Fatalf("expected token consumed after acquire")
	}
	p.Release(tab, errors.New("boom"))
	if len(p.sem) != 1 {
		t.Fatalf("expected token returned after release")
	}

	p.Close()
	p.Close()
	if _, err := p.Acquire(context.Background()); err == nil {
		t.Fatalf("expected acquire to fail when pool is closed")
	}
}

func TestPoolAcquireTimesOutWhenNoCapacity(t *testing.T) {
	p := &Pool{sem: make(chan struct{}, 1), browserCtx: context.Background()}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected acquire deadline exceeded, got %v", err)
	}
}

func TestPoolStats(t *testing.T) {
	p := &Pool{sem: make(chan struct{}, 2), profileDir: t.TempDir(), browserCtx: context.Background()}
	p.sem <- struct{}{}
	p.sem <- struct{}{}

	st := p.Stats()
	if !st.Enabled || st.Capacity != 2 || st.Idle != 2 || st.InUse != 0 {
		t.Fatalf("unexpected stats before acquire: %+v", st)
	}
	tab, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if st := p.Stats(); st.InUse != 1 {
		t.Fatalf("expected one in use, got %+v", st)
	}
	p.Release(tab, nil)

	p.Close()
	if st := p.Stats(); st.Enabled {
		t.Fatalf("expected stats disabled after close: %+v", st)
	}
}

func TestPoolRestart(t *testing.T) {
	closed := &Pool{closed: true}
	if err := closed.Restart(); err == nil {
		t.Fatalf("expected restart error when closed")
	}

	old := t.TempDir()
	p := &Pool{opts: Options{PoolSize: 1, UserDataDir: t.TempDir()}, sem: make(chan struct{}, 1), profileDir: old}
	p.sem <- struct{}{}
	if err := p.Restart(); err != nil {
		t.Fatalf("expected restart success, got %v", err)
	}
	defer p.Close()
	if p.profileDir == "" || p.profileDir == old {
		t.Fatalf("expected new profile dir, got %q", p.profileDir)
	}
	if p.Stats().Restarts != 1 {
		t.Fatalf("expected restart counter increment")
	}
}

func TestNewPool(t *testing.T) {
	if _, err := NewPool(Options{}); err == nil {
		t.Fatalf("expected disabled pool error")
	}

	p, err := NewPool(Options{ExecPath: "/bin/true", PoolSize: 1, UserDataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("expected pool init success with dummy exec path, got %v", err)
	}
	tab, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire should work: %v", err)
	}
	p.Release(tab, nil)
	p.Close()
}

func TestIsSessionInterrupted(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "context canceled", err: context.Canceled, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "target closed", err: errors.New("target closed"), want: true},
		{name: "websocket", err: errors.New("websocket: close 1006"), want: true},
		{name: "normal error", err: errors.New("validation failed"), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSessionInterrupted(tc.err); got != tc.want {
				t.Fatalf("IsSessionInterrupted(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestWaitForRenderReady(t *testing.T) {
	if err := waitForRenderReady(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := waitForRenderReady(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func testPage() render.Page {
	return render.Page{
		Background: render.Image{PNG: []byte{1, 2, 3}, Width: 1080, Height: 1350},
		Overlays:   []render.Overlay{{Image: render.Image{PNG: []byte{4}, Width: 500, Height: 400}, X: 216, Y: 540}},
	}
}

func TestPageHTML(t *testing.T) {
	html, layout, err := pageHTML(testPage(), 540)
	if err != nil {
		t.Fatalf("pageHTML: %v", err)
	}
	if layout.Width != 540 || layout.Height != 675 {
		t.Fatalf("unexpected layout %+v", layout)
	}
	for _, want := range []string{
		"size: 540pt 675pt",
		`src="data:image/png;base64,AQID"`,
		"left: 108pt; top: 270pt; width: 250pt; height: 200pt;",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in html:\n%s", want, html)
		}
	}
}

func TestPageHTML_InvalidPage(t *testing.T) {
	if _, _, err := pageHTML(render.Page{}, 595); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRenderPage_CanceledContext(t *testing.T) {
	p := &Pool{sem: make(chan struct{}, 1), browserCtx: context.Background()}
	r := NewRenderer(p, 595, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderPage(ctx, testPage()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if p.Stats().Restarts != 0 {
		t.Fatalf("canceled requests must not restart the pool")
	}
}
