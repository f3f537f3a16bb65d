package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"firestige.xyz/pktgraph/internal/config"
)

const (
	defaultPattern = "%time [%level] %msg %field"
	defaultTime    = "2006-01-02 15:04:05.000"
)

// Init builds a logger from cfg and installs it as the process logger.
func Init(cfg config.LogConfig) error {
	l, err := New(cfg, os.Stdout)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// New builds a logger that writes to stdout plus any configured outputs.
func New(cfg config.LogConfig, stdout io.Writer) (Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	out := NewMultiWriter()
	if stdout != nil {
		out.Add(stdout)
	}
	if cfg.Outputs.File.Enabled {
		if cfg.Outputs.File.Path == "" {
			return nil, fmt.Errorf("file output requires 'path' field")
		}
		out.AddFileAppender(FileAppenderOpt{
			Filename:   cfg.Outputs.File.Path,
			MaxSize:    cfg.Outputs.File.Rotation.MaxSizeMB,
			MaxBackups: cfg.Outputs.File.Rotation.MaxBackups,
			MaxAge:     cfg.Outputs.File.Rotation.MaxAgeDays,
			Compress:   cfg.Outputs.File.Rotation.Compress,
		})
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(out)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timeLayout(cfg.Time)})
	case "", "text":
		pattern := cfg.Pattern
		if pattern == "" {
			pattern = defaultPattern
		}
		l.SetFormatter(&formatter{pattern: pattern, time: timeLayout(cfg.Time)})
	default:
		return nil, fmt.Errorf("unsupported log format: %s (must be json or text)", cfg.Format)
	}

	return &logrusAdapter{entry: logrus.NewEntry(l)}, nil
}

func timeLayout(s string) string {
	if s == "" {
		return defaultTime
	}
	return s
}

// parseLevel accepts the four levels the config layer allows, plus trace.
func parseLevel(levelStr string) (logrus.Level, error) {
	switch strings.ToLower(levelStr) {
	case "trace":
		return logrus.TraceLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "", "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("unknown level: %s", levelStr)
	}
}

type logrusAdapter struct {
	entry *logrus.Entry
}

func (l *logrusAdapter) Trace(args ...interface{})                 { l.entry.Trace(args...) }
func (l *logrusAdapter) Tracef(format string, args ...interface{}) { l.entry.Tracef(format, args...) }

func (l *logrusAdapter) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *logrusAdapter) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

func (l *logrusAdapter) Info(args ...interface{})                 { l.entry.Info(args...) }
func (l *logrusAdapter) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }

func (l *logrusAdapter) Warn(args ...interface{})                 { l.entry.Warn(args...) }
func (l *logrusAdapter) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

func (l *logrusAdapter) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *logrusAdapter) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusAdapter) WithField(field string, value interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithField(field, value)}
}
func (l *logrusAdapter) WithFields(fields map[string]interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(fields)}
}
func (l *logrusAdapter) WithError(err error) Logger {
	return &logrusAdapter{entry: l.entry.WithError(err)}
}

func (l *logrusAdapter) IsTraceEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.TraceLevel)
}
func (l *logrusAdapter) IsDebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}
func (l *logrusAdapter) IsInfoEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.InfoLevel)
}
