package serverrun

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/acks"
	cfgpkg "github.com/Cdineshreddy12/Wrapper-sub015/internal/config"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/event"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/flows"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/publish"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/runtime"
	httpserver "github.com/Cdineshreddy12/Wrapper-sub015/internal/server/http"
	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/taskqueue"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/tracking"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/worker"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/workflow"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

// workflowQueue is the task queue backing the orchestrator's worker pool.
const workflowQueue = "workflows"

type Options struct {
	DataDir       string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Run starts the sync core and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context. We
	// layer a local signal context over the provided one.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	cfg := opts.Config

	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{
		DataDir:       storeDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        cfg,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	// Build process-wide logger from env; defaults: level=info, format=text.
	logCfg := &logpkg.Config{
		Level:  getenvDefault("WRAPSYNC_LOG_LEVEL", "info"),
		Format: getenvDefault("WRAPSYNC_LOG_FORMAT", "text"),
	}
	procLogger, err := logpkg.ApplyConfig(logCfg)
	if err != nil {
		procLogger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}

	// Redirect stdlib logs (e.g. Pebble) to our logger.
	logpkg.RedirectStdLog(procLogger)

	procLogger.Info("Starting wrapsync server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
		logpkg.Str("consumers", strings.Join(cfg.ConsumerApplications, ",")),
	)

	if _, err := rt.EnsureTenant(cfg.DefaultTenant); err != nil {
		return err
	}

	trk := tracking.NewStore(rt.DB(), procLogger.With(logpkg.Component("tracking")))
	sweeper := tracking.NewSweeper(trk,
		procLogger.With(logpkg.Component("tracking-sweeper")),
		time.Duration(cfg.Tracking.AckExpiryMs)*time.Millisecond,
		time.Duration(cfg.Tracking.SweepIntervalMs)*time.Millisecond,
		0)
	sweeper.Start(sctx)

	pub := publish.NewPublisher(rt, trk, event.DefaultRegistry(),
		procLogger.With(logpkg.Component("publisher")))

	// One ack consumer per downstream application.
	consumers := make([]*acks.Consumer, 0, len(cfg.ConsumerApplications))
	for _, app := range cfg.ConsumerApplications {
		c := acks.NewConsumer(rt, trk, app, cfg.Tracking.RetryBudget,
			procLogger.With(logpkg.Component("acks"), logpkg.Str("app", app)))
		if err := c.Start(sctx); err != nil {
			return err
		}
		consumers = append(consumers, c)
	}

	q, err := rt.TaskQueue(workflowQueue)
	if err != nil {
		return err
	}
	q.WithOptions(taskqueue.Options{MaxAvailable: cfg.Worker.QueueMaxAvailable})

	orch := workflow.New(rt.DB(), q, workflow.Config{
		MaxAttempts:       cfg.Workflow.MaxAttempts,
		BackoffBaseMs:     cfg.Workflow.BackoffBaseMs,
		BackoffCapMs:      cfg.Workflow.BackoffCapMs,
		ActivityTimeoutMs: cfg.Workflow.ActivityTimeoutMs,
	}, procLogger.With(logpkg.Component("workflow")))
	flows.Register(orch, flows.New(
		flows.NewStore(rt.DB()), pub, cfg.ConsumerApplications,
		procLogger.With(logpkg.Component("flows"))))
	if err := orch.Start(sctx); err != nil {
		return err
	}

	pool := worker.NewPool(q, orch.HandleTask, worker.Options{
		Concurrency: cfg.Worker.Concurrency,
		LeaseMs:     cfg.Worker.LeaseMs,
	}, procLogger.With(logpkg.Component("worker")))
	pool.Start(sctx)

	hsrv := httpserver.New(httpserver.Deps{
		Runtime:   rt,
		Tracking:  trk,
		Publisher: pub,
		Acks:      acks.NewSubmitter(rt),
		Workflows: orch,
	}, procLogger.With(logpkg.Component("http")))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			log.Printf("http error: %v", err)
		}
	}()

	<-sctx.Done()
	// Shut down front to back: stop accepting requests, stop consuming
	// acks and tasks, then the sweeper, and close the runtime last.
	hsrv.Close()
	wg.Wait()
	for _, c := range consumers {
		c.Stop()
	}
	pool.Stop()
	orch.Stop()
	sweeper.Stop()
	return nil
}
