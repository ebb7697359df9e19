package utils

import (
	"io"
	"log"
	"os"

	"github.com/amirphl/orochi-idgen/config"
	"gopkg.in/natefinch/lumberjack.v2"
	gormlogger "gorm.io/gorm/logger"
)

// NewLogger builds the process logger. File output rotates; the returned closer releases the file.
func NewLogger(cfg config.LoggingConfig, prefix string) (*log.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.Output == "file" || cfg.Output == "both" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		closer = rotating
		out = rotating
		if cfg.Output == "both" {
			out = io.MultiWriter(os.Stdout, rotating)
		}
	}
	return log.New(out, prefix, log.LstdFlags|log.LUTC|log.Lmicroseconds), closer
}

// GormLogLevel maps the configured log level onto gorm's. Debug logs every statement;
// below error, slow queries are reported only when slow query logging is on.
func GormLogLevel(cfg config.LoggingConfig, slowQueryLog bool) gormlogger.LogLevel {
	switch cfg.Level {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	}
	if slowQueryLog {
		return gormlogger.Warn
	}
	return gormlogger.Error
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
