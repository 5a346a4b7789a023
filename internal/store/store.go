// Package store is the gorm-backed persistence layer. A Store is either bound
// to the connection pool or, inside Transaction, to a single transaction.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/petermazzocco/go-microblog-api/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	Log          logrus.FieldLogger
}

type Store struct {
	db *gorm.DB
}

// Open connects through any gorm dialector and applies the pool options.
func Open(dialector gorm.Dialector, opts Options) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger(opts.Log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	return &Store{db: db}, nil
}

func OpenPostgres(dsn string, opts Options) (*Store, error) {
	return Open(postgres.Open(dsn), opts)
}

// OpenSQLite opens a sqlite file with foreign keys enforced. sqlite serialises
// writers, so the pool is pinned to one connection.
func OpenSQLite(path string, opts Options) (*Store, error) {
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	return Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), opts)
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Tweet{},
		&models.Media{},
		&models.Follow{},
	)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn against a Store bound to one transaction. Returning an
// error from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func newLogger(log logrus.FieldLogger) logger.Interface {
	if log == nil {
		return logger.Default.LogMode(logger.Silent)
	}
	return logger.New(gormWriter{log}, logger.Config{
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		// api keys appear as query parameters
		ParameterizedQueries: true,
	})
}

type gormWriter struct {
	log logrus.FieldLogger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.WithField("component", "gorm").Warnf(format, args...)
}
