package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Swind/go-simpleq/core"
	"github.com/Swind/go-simpleq/feed"
	"github.com/Swind/go-simpleq/internal/admin"
	"github.com/Swind/go-simpleq/internal/config"
	"github.com/Swind/go-simpleq/internal/jobs"
	promexport "github.com/Swind/go-simpleq/observability/prometheus"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

const shutdownGrace = 10 * time.Second

// jobQueue is the queue the CLI drives. Kill also wakes waitIdle, since Kill
// orphans drain signals that were taken before it.
type jobQueue struct {
	*core.Queue[jobs.Job, jobs.Result]
	killed chan struct{}
}

func (q *jobQueue) Kill() {
	q.Queue.Kill()
	select {
	case q.killed <- struct{}{}:
	default:
	}
}

// waitIdle blocks until the queue has nothing pending or running.
func (q *jobQueue) waitIdle(ctx context.Context) error {
	for {
		drained := q.DrainSignal()
		if q.Idle() {
			return nil
		}
		select {
		case <-drained:
			return nil
		case <-q.killed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// failures collects job errors reported by the queue.
type failures struct {
	mu   sync.Mutex
	list []failure
}

func (f *failures) add(job string, err error) {
	f.mu.Lock()
	f.list = append(f.list, failure{Job: job, Err: err})
	f.mu.Unlock()
}

func (f *failures) snapshot() []failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]failure(nil), f.list...)
}

func runCommand(cmd *cobra.Command, mgr *config.Manager) error {
	cfg, err := mgr.Load()
	if err != nil {
		return err
	}

	logger, flush, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer flush()

	list, err := loadJobs(cfg, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, mgr, list, logger, cmd.OutOrStdout())
}

func loadJobs(cfg *config.Config, stdin io.Reader) ([]jobs.Job, error) {
	if cfg.Jobs == "" || cfg.Jobs == "-" {
		return jobs.ParseLines(stdin, cfg.Shell)
	}
	return jobs.LoadFile(cfg.Jobs)
}

// run executes list, or serves cfg.Schedules when there are any, until the
// work is done or ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, mgr *config.Manager, list []jobs.Job, logger core.Logger, out io.Writer) error {
	started := time.Now()

	// Workers outlive ctx by shutdownGrace so an interrupt does not kill
	// child processes before they get a chance to finish.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	var reg *prometheus.Registry
	var metrics core.Metrics
	if cfg.MetricsAddr != "" || cfg.AdminAddr != "" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		exporter, err := promexport.NewMetricsExporter("", reg, promexport.ExporterOptions{})
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		metrics = exporter
	}

	runner := jobs.NewRunner(cfg.Shell, logger)
	worker := core.Worker[jobs.Job, jobs.Result](runner.Run)
	if cfg.RatePerSec > 0 {
		worker = core.RateLimited(rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst), worker)
	}

	inner, err := core.NewQueueWithConfig(worker, cfg.Concurrency, &core.QueueConfig{
		Name:    cfg.Name,
		Context: workCtx,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}
	q := &jobQueue{Queue: inner, killed: make(chan struct{}, 1)}

	var failed failures
	if err := q.OnError(func(err error, job jobs.Job) {
		failed.add(job.Name, err)
		if cfg.FailFast {
			logger.Warn("fail-fast: discarding pending jobs", core.F("job", job.Name))
			q.Kill()
		}
	}); err != nil {
		return err
	}

	srvCtx, stopServers := context.WithCancel(context.Background())
	var servers sync.WaitGroup
	defer func() {
		stopServers()
		servers.Wait()
	}()
	serve := func(what, addr string, h http.Handler) {
		servers.Add(1)
		go func() {
			defer servers.Done()
			if err := admin.ListenAndServe(srvCtx, addr, h, logger, nil); err != nil {
				logger.Error(what+" server failed", core.F("addr", addr), core.F("error", err))
			}
		}()
	}

	if reg != nil {
		poller, err := promexport.NewSnapshotPoller(reg, 5*time.Second)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		poller.AddQueue(cfg.Name, q)
		poller.Start(srvCtx)
		defer poller.Stop()
	}
	var metricsHandler http.Handler
	if reg != nil {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	if cfg.MetricsAddr != "" {
		serve("metrics", cfg.MetricsAddr, metricsHandler)
	}
	if cfg.AdminAddr != "" {
		serve("admin", cfg.AdminAddr, admin.NewServer(q, logger, admin.WithMetricsHandler(metricsHandler)).Router())
	}

	if mgr != nil {
		go watchConfig(srvCtx, mgr, q, logger)
	}

	var cron *feed.Cron[jobs.Job, jobs.Result]
	if len(cfg.Schedules) > 0 {
		cron, err = newFeed(cfg.Schedules, list, q, logger)
		if err != nil {
			return err
		}
	}

	if cfg.Paused {
		q.Pause()
	}

	var pushed int64
	if cron == nil {
		// Hold dispatch until every job is queued so file order is start order.
		wasPaused := q.Paused()
		q.Pause()
		for _, job := range list {
			q.Push(job)
		}
		pushed = int64(len(list))
		if !wasPaused {
			q.Resume()
		}
	} else {
		cron.Start()
	}

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("systemd notify failed", core.F("error", err))
	} else if sent {
		logger.Debug("systemd notified ready")
	}

	interrupted := false
	if cron != nil {
		<-ctx.Done()
	} else if err := q.waitIdle(ctx); err != nil {
		interrupted = true
	}

	if cron != nil {
		<-cron.Stop().Done()
		pushed = cron.Fired()
	}
	if !q.Idle() {
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
		q.Kill()
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		if err := q.waitIdle(graceCtx); err != nil {
			logger.Warn("jobs still running, terminating", core.F("running", q.Running()))
			cancelWork()
			_ = q.waitIdle(context.Background())
		}
		cancel()
	}

	stats := q.Stats()
	summary{
		Pushed:      pushed,
		Succeeded:   stats.Completed,
		Failed:      stats.Failed,
		Discarded:   stats.Discarded,
		Elapsed:     time.Since(started),
		Interrupted: interrupted,
		Failures:    failed.snapshot(),
	}.print(out)

	if stats.Failed > 0 {
		return ErrJobsFailed
	}
	if interrupted {
		return ctx.Err()
	}
	return nil
}

// newFeed registers one cron entry per schedule. Each firing pushes the
// named job from list.
func newFeed(schedules []config.Schedule, list []jobs.Job, q *jobQueue, logger core.Logger) (*feed.Cron[jobs.Job, jobs.Result], error) {
	byName := jobs.Index(list)
	cron := feed.NewCron[jobs.Job, jobs.Result](q, logger)
	for _, s := range schedules {
		job, ok := byName[s.Job]
		if !ok {
			return nil, fmt.Errorf("schedule %q: unknown job %q", s.Spec, s.Job)
		}
		if _, err := cron.Every(s.Spec, func() jobs.Job { return job }); err != nil {
			return nil, err
		}
	}
	return cron, nil
}

// watchConfig applies concurrency and pause changes from the config file.
func watchConfig(ctx context.Context, mgr *config.Manager, q *jobQueue, logger core.Logger) {
	updates := mgr.Subscribe(1)
	go func() {
		if err := mgr.Watch(ctx, func(err error) {
			logger.Warn("config reload failed", core.F("error", err))
		}); err != nil {
			logger.Warn("config watch stopped", core.F("error", err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-updates:
			applyConfig(cfg, q, logger)
		}
	}
}

func applyConfig(cfg *config.Config, q *jobQueue, logger core.Logger) {
	if err := q.SetConcurrency(cfg.Concurrency); err != nil {
		logger.Warn("config reload: concurrency rejected", core.F("error", err))
	}
	if cfg.Paused {
		q.Pause()
	} else {
		q.Resume()
	}
}
