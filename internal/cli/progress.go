package cli

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/matzehuels/slimdeps/pkg/observability"
)

// progressHooks drives a terminal progress bar from injection events.
// The bar counts injected nodes; its description names the artifact
// currently transferring.
type progressHooks struct {
	observability.NoopInjectHooks

	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	failed   int
	reused   int
	fetched  int
	finished bool
}

func newProgressHooks(w io.Writer, total int) *progressHooks {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetDescription("injecting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	return &progressHooks{bar: bar}
}

func (p *progressHooks) OnDownloadStart(_ context.Context, dep, _ string, _ int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar.Describe(dep)
}

func (p *progressHooks) OnDownloadComplete(_ context.Context, _, _ string, reused bool, _ time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case err != nil:
	case reused:
		p.reused++
	default:
		p.fetched++
	}
}

func (p *progressHooks) OnInject(_ context.Context, dep, _ string, _ int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failed++
	}
	p.bar.Describe(dep)
	_ = p.bar.Add(1)
}

// finish completes the bar. Safe to call more than once.
func (p *progressHooks) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	_ = p.bar.Finish()
}

// counts returns the number of fetched, reused and failed artifacts seen.
func (p *progressHooks) counts() (fetched, reused, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetched, p.reused, p.failed
}
