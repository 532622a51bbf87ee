package settings

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/diarlive/errors"
	"github.com/kbukum/diarlive/logger"
)

// GormStore persists settings in a SQL table through gorm.
type GormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewGormStore wraps an open gorm handle.
func NewGormStore(db *gorm.DB, log *logger.Logger) *GormStore {
	return &GormStore{db: db, log: log}
}

// OpenSQLite opens the sqlite database named by cfg.DSN, retrying with a
// linear backoff, and migrates the settings table when asked to.
func OpenSQLite(ctx context.Context, cfg Config, log *logger.Logger) (*GormStore, error) {
	cfg.ApplyDefaults()
	gormCfg := &gorm.Config{
		Logger: newGormLogger(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
	}

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("settings store open canceled: %w", ctx.Err())
		}
		db, err = gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
		if err == nil {
			err = ping(ctx, db)
		}
		if err == nil {
			break
		}
		log.Warn("Settings store open failed", logger.F{
			"attempt": attempt,
			"error":   err.Error(),
		})
		if attempt < cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("settings store open canceled: %w", ctx.Err())
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store after %d attempts: %w", cfg.MaxRetries, err)
	}

	if cfg.AutoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(&Settings{}); err != nil {
			return nil, fmt.Errorf("settings migration: %w", err)
		}
	}
	log.Info("Settings store ready", logger.F{"dsn": cfg.DSN})
	return NewGormStore(db, log), nil
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Get(ctx context.Context, meetingID string) (Settings, error) {
	if meetingID == "" {
		return Settings{}, errors.InvalidInput("meeting_id", "is required")
	}
	var row Settings
	err := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID).Take(&row).Error
	switch {
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		return Default(meetingID), nil
	case err != nil:
		return Settings{}, errors.ExternalServiceError("settings-db", err)
	}
	return row, nil
}

// Put inserts or replaces the row for s.MeetingID.
func (s *GormStore) Put(ctx context.Context, m Settings) error {
	if err := m.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
	if err != nil {
		return errors.ExternalServiceError("settings-db", err)
	}
	return nil
}

// Ping checks the connection.
func (s *GormStore) Ping(ctx context.Context) error {
	return ping(ctx, s.db)
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.log.Info("Closing settings store")
	return sqlDB.Close()
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	default:
		return gormlogger.Info
	}
}

type gormLoggerAdapter struct {
	log           *logger.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(log *logger.Logger, slowThreshold time.Duration, logLevel gormlogger.LogLevel) gormlogger.Interface {
	return &gormLoggerAdapter{
		log:           log.WithComponent("gorm"),
		logLevel:      logLevel,
		slowThreshold: slowThreshold,
	}
}

func (l *gormLoggerAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLoggerAdapter{log: l.log, logLevel: level, slowThreshold: l.slowThreshold}
}

func (l *gormLoggerAdapter) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLoggerAdapter) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLoggerAdapter) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLoggerAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	switch {
	case err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound):
		l.log.Error("Query error", logger.F{
			"sql": sql, "duration": elapsed.String(), "rows": rows, "error": err.Error(),
		})
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		l.log.Warn("Slow query", logger.F{
			"sql": sql, "duration": elapsed.String(), "rows": rows,
		})
	case l.logLevel >= gormlogger.Info:
		l.log.Debug("Query", logger.F{
			"sql": sql, "duration": elapsed.String(), "rows": rows,
		})
	}
}
