package main

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"licensing-ledger/internal/config"
	"licensing-ledger/internal/service"
	"licensing-ledger/internal/storage"
	appTemporal "licensing-ledger/internal/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := cfg.NewLogger()

	store, err := storage.Open(cfg.StoreDriver, cfg.PostgresDSN)
	if err != nil {
		logger.WithError(err).Fatal("open store")
	}
	defer store.Close()

	blob, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		logger.WithError(err).Fatal("connect minio")
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		logger.WithError(err).Fatal("connect temporal")
	}
	defer temporalClient.Close()

	svc := service.New(store, logger.WithField("component", "service"), service.WithDocuments(blob))
	activities := &appTemporal.Activities{
		Service:   svc,
		OrphanAge: cfg.OrphanCollectionAge,
	}

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(appTemporal.HousekeepingWorkflow, workflow.RegisterOptions{Name: appTemporal.HousekeepingWorkflowName})
	w.RegisterActivity(activities.ExpireApprovalsActivity)
	w.RegisterActivity(activities.PurgeOrphanedCollectionsActivity)

	if cfg.HousekeepingCron != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		opts := appTemporal.HousekeepingStartOptions(cfg.WorkflowIDPrefix, cfg.TemporalTaskQueue, cfg.HousekeepingCron)
		_, err := temporalClient.ExecuteWorkflow(ctx, opts, appTemporal.HousekeepingWorkflowName, appTemporal.HousekeepingInput{})
		cancel()
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		switch {
		case err == nil:
			logger.WithField("workflow_id", opts.ID).WithField("cron", opts.CronSchedule).Info("housekeeping schedule started")
		case errors.As(err, &alreadyStarted):
			logger.WithField("workflow_id", opts.ID).Info("housekeeping schedule already running")
		default:
			logger.WithError(err).Fatal("start housekeeping schedule")
		}
	}

	logger.WithField("task_queue", cfg.TemporalTaskQueue).Info("worker running")
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.WithError(err).Fatal("worker stopped with error")
	}
}
