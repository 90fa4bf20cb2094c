package main

import (
	"context"
	"fmt"

	"github.com/lightgrid/lightgrid-services-uploads/audit"
	"github.com/lightgrid/lightgrid-services-uploads/caching"
	"github.com/lightgrid/lightgrid-services-uploads/handlers"
	"github.com/lightgrid/lightgrid-services-uploads/services"
	"github.com/lightgrid/lightgrid-services-uploads/store"
)

type Stores struct {
	files    store.FileStore
	sessions store.SessionStore
	objects  store.ObjectStorage
}

type Services struct {
	Uploads services.UploadService
	Files   services.FileService
	Sweeper *services.ExpirySweeper
	Audit   audit.Sink

	Stores *Stores

	Handler *handlers.HTTPHandler
}

type Shutdowner interface {
	Shutdown(context.Context) error
}

func BuildServices(app *App) *Services {
	fileStore := store.NewDynamoDbFileStore(app.DynamoDB, app.Config.DynamoDBConfig.FilesTableName)
	sessStore := store.NewRedisSessionStore(app.Redis)
	objects := store.NewS3ObjectStorage(app.S3, app.Config.S3Config.BucketName, app.Logger)

	cachingSvc := caching.NewRedisCachingService(app.Redis)

	var auditor audit.Sink = audit.NewLoggerSink(app.Logger)
	if app.Sqs != nil && app.Config.AWSConfig.AccountID != "" {
		queueUrl := fmt.Sprintf("https://sqs.%s.amazonaws.com/%s/%s",
			app.Config.AWSConfig.Region, app.Config.AWSConfig.AccountID, app.Config.ServiceConfig.AuditQueueName)
		sqsSink := audit.NewSqsSink(context.Background(), app.Sqs, queueUrl, app.Logger)
		sqsSink.Start()
		auditor = sqsSink
	}

	uploadSvc := services.NewUploadServiceImpl(
		sessStore,
		fileStore,
		objects,
		services.AllowAllProducts{},
		auditor,
		cachingSvc,
		app.Config.ServiceConfig.ChunkSizeBytes,
		app.Config.ServiceConfig.SessionTTL(),
		app.Logger,
	)
	fileSvc := services.NewFileServiceImpl(fileStore, objects, cachingSvc, app.Logger)

	sweeper := services.NewExpirySweeper(
		context.Background(),
		sessStore,
		objects,
		auditor,
		app.Config.ServiceConfig.SweepInterval(),
		app.Logger,
	)
	sweeper.Start()

	handler := handlers.NewHTTPHandler(uploadSvc, fileSvc, app.Ready, app.Logger)

	return &Services{
		Uploads: uploadSvc,
		Files:   fileSvc,
		Sweeper: sweeper,
		Audit:   auditor,

		Stores: &Stores{
			files:    fileStore,
			sessions: sessStore,
			objects:  objects,
		},

		Handler: handler,
	}
}

func (s *Services) Shutdown(ctx context.Context) error {
	if s.Sweeper != nil {
		if err := s.Sweeper.Shutdown(ctx); err != nil {
			return err
		}
	}

	if sh, ok := s.Audit.(Shutdowner); ok {
		if err := sh.Shutdown(ctx); err != nil {
			return err
		}
	}

	return nil
}
