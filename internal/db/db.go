// Package db opens the optional relational store.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onepuzle/puzle-ai/internal/chat"
	"github.com/onepuzle/puzle-ai/internal/events"
)

var ErrUnsupportedURL = errors.New("unsupported database url")

// Dialector maps a DATABASE_URL to a gorm dialector.
func Dialector(url string) (gorm.Dialector, error) {
	u := strings.TrimSpace(url)
	lower := strings.ToLower(u)

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return postgres.Open(u), nil
	case strings.HasPrefix(lower, "mysql://"):
		return mysql.Open(u[len("mysql://"):]), nil
	case strings.Contains(u, "@tcp("):
		return mysql.Open(u), nil
	case strings.HasPrefix(lower, "sqlite://"):
		return sqlite.Open(u[len("sqlite://"):]), nil
	case strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"):
		return sqlite.Open(u), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, redactURL(u))
}

// Open connects and pings. Short-lived pooled connections per operation.
func Open(ctx context.Context, url string) (*gorm.DB, error) {
	d, err := Dialector(url)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(d, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return gdb, nil
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&chat.User{}, &chat.Chat{}, &chat.Message{}, &events.TurnRecord{})
}

// redactURL drops credentials from a URL before it is logged.
func redactURL(u string) string {
	at := strings.LastIndex(u, "@")
	if at < 0 {
		return u
	}
	scheme := strings.Index(u, "://")
	if scheme < 0 || scheme > at {
		return "***" + u[at:]
	}
	return u[:scheme+3] + "***" + u[at:]
}
