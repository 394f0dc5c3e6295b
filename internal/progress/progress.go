// Package progress defines the observer interfaces used to report ingest
// and extraction progress, plus a no-op default and a progressbar-backed
// implementation.
package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// SimpleProgress tracks the progress of a single linear phase (Equivalence's
// two passes, Extractor's traversal) as a count against a known total.
// Implementations must be safe to call from the driver thread only.
type SimpleProgress interface {
	Create(message string, totalIterations int64)
	Update(completed int64)
	Finalize()
}

// MultilineProgress tracks Ingest's walk: an overall file count alongside
// the directory currently being visited. Implementations must be safe to
// call from the driver thread only.
type MultilineProgress interface {
	// Create initializes the indicator and returns a SimpleProgress for
	// tracking the overall count of files processed.
	Create(message string, totalFiles int64) SimpleProgress
	UpdateCurrentDir(path string)
	Finalize()
}

// noopSimple is the default SimpleProgress: every method is a no-op.
type noopSimple struct{}

func (noopSimple) Create(string, int64) {}
func (noopSimple) Update(int64)         {}
func (noopSimple) Finalize()            {}

// NoopSimple is the default no-op SimpleProgress.
var NoopSimple SimpleProgress = noopSimple{}

// noopMultiline is the default MultilineProgress: every method is a no-op.
type noopMultiline struct{}

func (noopMultiline) Create(string, int64) SimpleProgress { return NoopSimple }
func (noopMultiline) UpdateCurrentDir(string)              {}
func (noopMultiline) Finalize()                            {}

// NoopMultiline is the default no-op MultilineProgress.
var NoopMultiline MultilineProgress = noopMultiline{}

const updateInterval = 50 * time.Millisecond

// Bar is a SimpleProgress backed by schollz/progressbar. It always renders;
// the no-op alternative is NoopSimple.
type Bar struct {
	bar     *progressbar.ProgressBar
	message string
}

// NewBar creates a progress bar. total < 0 renders a spinner; total >= 0
// renders a determinate bar.
func NewBar(total int64) *Bar {
	opts := []progressbar.Option{
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(updateInterval),
		progressbar.OptionClearOnFinish(),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetElapsedTime(false),
		)
		return &Bar{bar: progressbar.NewOptions64(-1, opts...)}
	}

	opts = append(opts, progressbar.OptionSetWidth(40))
	return &Bar{bar: progressbar.NewOptions64(total, opts...)}
}

// Create implements SimpleProgress.
func (b *Bar) Create(message string, totalIterations int64) {
	b.message = message
	b.bar.ChangeMax64(totalIterations)
	b.bar.Describe(message)
}

// Update implements SimpleProgress.
func (b *Bar) Update(completed int64) {
	_ = b.bar.Set64(completed)
}

// Finalize implements SimpleProgress.
func (b *Bar) Finalize() {
	_ = b.bar.Finish()
	fmt.Fprintf(os.Stderr, "✔ %s done\n", b.message)
}

// MultilineBar is a MultilineProgress backed by schollz/progressbar,
// describing the current directory alongside an inner SimpleProgress bar
// tracking overall file count.
type MultilineBar struct {
	bar     *progressbar.ProgressBar
	current string
}

// NewMultilineBar creates a MultilineProgress.
func NewMultilineBar() *MultilineBar {
	return &MultilineBar{}
}

// Create implements MultilineProgress. It renders a spinner for the overall
// file count and returns an inner SimpleProgress sink that shares the same
// bar, so UpdateCurrentDir redescribes it and Update advances its count.
func (m *MultilineBar) Create(message string, totalFiles int64) SimpleProgress {
	opts := []progressbar.Option{
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(updateInterval),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSpinnerType(14),
	}
	m.bar = progressbar.NewOptions64(totalFiles, opts...)
	m.bar.Describe(message)
	return (*multilineInner)(m)
}

// UpdateCurrentDir implements MultilineProgress.
func (m *MultilineBar) UpdateCurrentDir(path string) {
	m.current = path
	if m.bar != nil {
		m.bar.Describe(fmt.Sprintf("scanning %s", path))
	}
}

// Finalize implements MultilineProgress.
func (m *MultilineBar) Finalize() {
	if m.bar != nil {
		_ = m.bar.Finish()
	}
}

// multilineInner adapts *MultilineBar to SimpleProgress for the count
// returned by Create.
type multilineInner MultilineBar

func (m *multilineInner) Create(string, int64) {}
func (m *multilineInner) Update(completed int64) {
	if m.bar != nil {
		_ = m.bar.Set64(completed)
	}
}
func (m *multilineInner) Finalize() {}
