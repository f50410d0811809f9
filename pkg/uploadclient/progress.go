package uploadclient

import (
	"io"
	"sync"
)

// ProgressFunc receives whole percentages in [0, 100].
type ProgressFunc func(percent int)

// progressTracker reports a monotonically non-decreasing percentage across
// retries of the same body.
type progressTracker struct {
	mu    sync.Mutex
	total int64
	last  int
	fn    ProgressFunc
}

func newProgressTracker(total int64, fn ProgressFunc) *progressTracker {
	return &progressTracker{total: total, last: -1, fn: fn}
}

func (t *progressTracker) report(sent int64) {
	if t.fn == nil || t.total <= 0 {
		return
	}
	// 100 is reserved for a confirmed upload
	pct := int(sent * 99 / t.total)
	t.emit(pct)
}

func (t *progressTracker) done() {
	t.emit(100)
}

func (t *progressTracker) emit(pct int) {
	if t.fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if pct <= t.last {
		return
	}
	t.last = pct
	t.fn(pct)
}

type progressReader struct {
	r       io.Reader
	sent    int64
	tracker *progressTracker
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.tracker.report(p.sent)
	}
	return n, err
}

func (p *progressReader) Close() error {
	return nil
}
