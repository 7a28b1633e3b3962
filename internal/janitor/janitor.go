// Package janitor periodically reclaims build directories while the
// compilation queue is idle.
package janitor

import (
	"log/slog"
	"sync"
	"time"

	"cexd/internal/queue"
	"cexd/internal/workspace"
)

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 600 * time.Second

// StatusSource reports queue load; *queue.Queue implements it.
type StatusSource interface {
	Status() queue.Status
}

// Cleaner removes reclaimable directories; *workspace.Tracker implements it.
type Cleaner interface {
	Cleanup() (workspace.Stats, error)
}

// Janitor runs cleanup passes on a ticker. Cleanup never runs while the
// queue is busy, since in-flight jobs share the temp root.
type Janitor struct {
	status   StatusSource
	cleaner  Cleaner
	log      *slog.Logger
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	skipped int
}

// New creates a stopped janitor.
func New(status StatusSource, cleaner Cleaner, interval time.Duration, log *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Janitor{
		status:   status,
		cleaner:  cleaner,
		log:      log.With("component", "janitor"),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Interval is the tick period.
func (j *Janitor) Interval() time.Duration { return j.interval }

// Start launches the ticker. Further calls do nothing.
func (j *Janitor) Start() {
	j.startOnce.Do(func() {
		j.wg.Add(1)
		go j.run()
		j.log.Debug("janitor started", "interval", j.interval)
	})
}

func (j *Janitor) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.Tick()
		case <-j.stopCh:
			return
		}
	}
}

// Stop ends the ticker and waits for a running pass to finish.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopCh)
	})
	j.wg.Wait()
}

// Tick performs one pass: skipped when the queue is busy, a cleanup
// otherwise. It reports whether a cleanup ran.
func (j *Janitor) Tick() bool {
	st := j.status.Status()

	j.mu.Lock()
	defer j.mu.Unlock()
	if st.Busy {
		j.skipped++
		j.log.Warn("skipping workspace cleanup, compilation queue busy",
			"pending", st.Pending, "size", st.Size, "cycles", j.skipped)
		return false
	}
	j.skipped = 0

	stats, err := j.cleaner.Cleanup()
	if err != nil {
		j.log.Error("workspace cleanup failed", "err", err, "dirs", stats.Dirs, "files", stats.Files)
		return true
	}
	j.log.Debug("workspace cleanup done", "dirs", stats.Dirs, "files", stats.Files, "in_use", stats.Skipped)
	return true
}

// Skipped is the number of consecutive busy ticks.
func (j *Janitor) Skipped() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.skipped
}
