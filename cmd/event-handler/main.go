package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"licensing-ledger/internal/config"
	"licensing-ledger/internal/events"
	"licensing-ledger/internal/service"
	"licensing-ledger/internal/storage"
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

	minioClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		logger.WithError(err).Fatal("connect minio")
	}

	svc := service.New(store, logger.WithField("component", "service"))
	source := events.NewMinioUploadEventSource(minioClient, cfg.MinioBucket, "")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithField("bucket", cfg.MinioBucket).Info("event-handler listening for temporary uploads")
	err = source.Run(ctx, func(parent context.Context, event events.UploadEvent) error {
		execCtx, cancel := context.WithTimeout(parent, 15*time.Second)
		defer cancel()

		doc, err := svc.RegisterTemporaryDocument(execCtx, event.CollectionID, event.ObjectKey)
		if err != nil {
			return errors.Wrapf(err, "register object %s", event.ObjectKey)
		}
		logger.WithFields(logrus.Fields{
			"collection": event.CollectionID.String(),
			"document":   doc.ID,
			"event":      event.EventName,
		}).Debug("upload registered")
		return nil
	})
	if err != nil {
		logger.WithError(err).Fatal("event-handler stopped with error")
	}
}
