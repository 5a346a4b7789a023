package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/petermazzocco/go-microblog-api/internal/blob"
	"github.com/petermazzocco/go-microblog-api/internal/config"
	"github.com/petermazzocco/go-microblog-api/internal/handlers"
	"github.com/petermazzocco/go-microblog-api/internal/metrics"
	"github.com/petermazzocco/go-microblog-api/internal/service"
	"github.com/petermazzocco/go-microblog-api/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
	}

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		err = serve(cfg, log)
	case "migrate":
		err = migrate(cfg, log)
	case "delete-user":
		if len(os.Args) < 3 {
			log.Fatal("Usage: api delete-user <id>")
		}
		err = deleteUser(cfg, log, os.Args[2])
	default:
		log.Fatalf("Unknown command: %s", cmd)
	}
	if err != nil {
		log.WithError(err).Fatalf("%s failed", cmd)
	}
}

func openStore(cfg *config.Config, log logrus.FieldLogger) (*store.Store, error) {
	opts := store.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		Log:          log,
	}
	if cfg.DSN != "" {
		return store.OpenPostgres(cfg.DSN, opts)
	}
	log.WithField("path", cfg.SQLitePath).Info("DSN not set, using sqlite")
	return store.OpenSQLite(cfg.SQLitePath, opts)
}

func openBlobs(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.BlobBackend == config.BlobS3 {
		client, err := blob.NewR2Client(ctx, blob.S3Config{
			AccountID:       cfg.AccountID,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
			Region:          cfg.S3Region,
		})
		if err != nil {
			return nil, err
		}
		return blob.NewS3Store(client, cfg.BucketName, cfg.PublicURL), nil
	}
	return blob.NewLocalStore(cfg.UploadDir)
}

// newService wires the store, blob backend and metrics together. The caller
// owns the returned store.
func newService(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, reg prometheus.Registerer) (*service.Service, *store.Store, *metrics.Metrics, error) {
	st, err := openStore(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	m := metrics.New(reg)
	return service.New(st, blobs, log, m), st, m, nil
}

func serve(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, st, m, err := newService(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Error("Failed to close database")
			return
		}
		log.Info("Database connection closed")
	}()

	h := handlers.New(svc, log, handlers.Options{
		RateLimit:      cfg.RateLimit,
		SlowRequest:    cfg.SlowRequest,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Metrics:        m,
		Gatherer:       reg,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func migrate(cfg *config.Config, log *logrus.Logger) error {
	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		return err
	}
	log.Info("Migrations completed successfully")
	return nil
}

func deleteUser(cfg *config.Config, log *logrus.Logger, arg string) error {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, st, _, err := newService(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer st.Close()

	if err := svc.DeleteUser(ctx, uint(id)); err != nil {
		return err
	}
	log.WithField("user_id", id).Info("User deleted")
	return nil
}
