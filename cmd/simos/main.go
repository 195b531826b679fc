package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/simos"
	"github.com/viant/simos/model/task"
	"github.com/viant/simos/service/event"
	"github.com/viant/simos/service/executor"
	"github.com/viant/simos/tracing"
)

func main() {
	configURL := flag.String("config", "", "config URL (file path, file://, mem://...)")
	drain := flag.Bool("drain", true, "stop once the workload has finished")
	flag.Parse()

	log := logrus.StandardLogger().WithField("type", "main")
	if err := run(*configURL, *drain); err != nil {
		log.WithError(err).Error("simos failed")
		os.Exit(1)
	}
}

func run(configURL string, drain bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := simos.DefaultConfig()
	if configURL != "" {
		var err error
		if config, err = simos.LoadConfig(ctx, configURL); err != nil {
			return err
		}
	}
	if err := config.ConfigureLogger(); err != nil {
		return err
	}
	log := logrus.StandardLogger().WithField("type", "main")

	srv, err := simos.New(
		simos.WithConfig(config),
		simos.WithExecutorOptions(executor.WithListener(func(aTask *task.Task, elapsed time.Duration) {
			log.WithFields(logrus.Fields{"pid": aTask.ID, "label": aTask.Label, "elapsed": elapsed}).Debug("process alive")
		})),
		simos.WithEventHandler(func(anEvent *event.Event[task.Snapshot]) error {
			log.WithFields(logrus.Fields{
				"event":   anEvent.Context.EventType,
				"pid":     anEvent.Data.ID,
				"label":   anEvent.Data.Label,
				"size":    anEvent.Data.Size,
				"address": anEvent.Data.Address,
			}).Info("lifecycle")
			return nil
		}),
	)
	if err != nil {
		return err
	}
	defer func() {
		if config.Tracing.Enabled {
			_ = tracing.Shutdown(context.Background())
		}
	}()

	if err = srv.Start(ctx); err != nil {
		return err
	}
	if _, err = srv.RunWorkload(ctx); err != nil {
		log.WithError(err).Warn("workload partially admitted")
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for waiting := true; waiting; {
		select {
		case <-ctx.Done():
			log.Info("shutdown requested")
			waiting = false
		case <-ticker.C:
			if !drain {
				continue
			}
			progress := srv.Progress()
			if progress.QueuedTasks == 0 && progress.RunningTasks == 0 {
				waiting = false
			}
		}
	}

	err = srv.Stop()
	stats := srv.Stats()
	progress := srv.Progress()
	log.WithFields(logrus.Fields{
		"total":       stats.Total,
		"used":        stats.Used,
		"regions":     stats.Regions,
		"finished":    progress.FinishedTasks,
		"cancelled":   progress.CancelledTasks,
		"heartbeats":  progress.Heartbeats,
		"deadLetters": srv.DeadLetters(),
	}).Info("simulation stopped")
	return err
}
