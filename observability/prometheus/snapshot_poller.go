package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-simpleq/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// QueueSnapshotProvider provides current queue stats snapshots.
// *core.Queue satisfies it for any payload and result type.
type QueueSnapshotProvider interface {
	Stats() core.QueueStats
}

// SnapshotPoller periodically exports queue Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	queuesMu sync.RWMutex
	queues   map[string]QueueSnapshotProvider

	concurrency *prom.GaugeVec
	pending     *prom.GaugeVec
	running     *prom.GaugeVec
	paused      *prom.GaugeVec
	idle        *prom.GaugeVec
	completed   *prom.GaugeVec
	failed      *prom.GaugeVec
	discarded   *prom.GaugeVec

	stateMu sync.Mutex
	active  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "simpleq",
			Subsystem: "snapshot",
			Name:      name,
			Help:      help,
		}, []string{"queue"})
	}

	p := &SnapshotPoller{
		interval:    interval,
		queues:      make(map[string]QueueSnapshotProvider),
		concurrency: gauge("concurrency", "Configured concurrency per queue."),
		pending:     gauge("pending", "Pending tasks per queue."),
		running:     gauge("running", "Running tasks per queue."),
		paused:      gauge("paused", "Queue paused state (1=paused, 0=dispatching)."),
		idle:        gauge("idle", "Queue idle state (1=idle, 0=busy)."),
		completed:   gauge("completed", "Completed task count snapshot."),
		failed:      gauge("failed", "Failed task count snapshot."),
		discarded:   gauge("discarded", "Discarded task count snapshot."),
	}

	var err error
	for _, vec := range []**prom.GaugeVec{
		&p.concurrency, &p.pending, &p.running, &p.paused,
		&p.idle, &p.completed, &p.failed, &p.discarded,
	} {
		if *vec, err = registerCollector(reg, *vec); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// AddQueue adds or replaces a queue snapshot provider by name.
func (p *SnapshotPoller) AddQueue(name string, provider QueueSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "queue")
	p.queuesMu.Lock()
	p.queues[name] = provider
	p.queuesMu.Unlock()
}

// RemoveQueue stops exporting a queue and deletes its series.
func (p *SnapshotPoller) RemoveQueue(name string) {
	if p == nil {
		return
	}
	name = normalizeLabel(name, "queue")
	p.queuesMu.Lock()
	delete(p.queues, name)
	p.queuesMu.Unlock()

	for _, vec := range p.vectors() {
		vec.DeleteLabelValues(name)
	}
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.active {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.active = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.active {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.active = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.queuesMu.RLock()
	defer p.queuesMu.RUnlock()

	for name, provider := range p.queues {
		stats := provider.Stats()
		p.concurrency.WithLabelValues(name).Set(float64(stats.Concurrency))
		p.pending.WithLabelValues(name).Set(float64(stats.Pending))
		p.running.WithLabelValues(name).Set(float64(stats.Running))
		p.paused.WithLabelValues(name).Set(boolGauge(stats.Paused))
		p.idle.WithLabelValues(name).Set(boolGauge(stats.Idle))
		p.completed.WithLabelValues(name).Set(float64(stats.Completed))
		p.failed.WithLabelValues(name).Set(float64(stats.Failed))
		p.discarded.WithLabelValues(name).Set(float64(stats.Discarded))
	}
}

func (p *SnapshotPoller) vectors() []*prom.GaugeVec {
	return []*prom.GaugeVec{
		p.concurrency, p.pending, p.running, p.paused,
		p.idle, p.completed, p.failed, p.discarded,
	}
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
