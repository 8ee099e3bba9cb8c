package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"webcam-session/internal/application"
)

// LogrusLogger реализация application.Logger на основе logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger создает новый логгер, пишущий в stderr
func NewLogrusLogger(debugEnabled bool) *LogrusLogger {
	return NewLogrusLoggerWithOutput(os.Stderr, debugEnabled)
}

// NewLogrusLoggerWithOutput создает логгер с заданным выводом
func NewLogrusLoggerWithOutput(out io.Writer, debugEnabled bool) *LogrusLogger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	log.SetLevel(logrus.InfoLevel)
	if debugEnabled {
		log.SetLevel(logrus.DebugLevel)
	}

	return FromEntry(logrus.NewEntry(log))
}

// FromEntry оборачивает готовую запись logrus
func FromEntry(entry *logrus.Entry) *LogrusLogger {
	return &LogrusLogger{entry: entry}
}

// Info логирует информационное сообщение
func (l *LogrusLogger) Info(msg string, args ...interface{}) {
	l.entry.Infof(msg, args...)
}

// Error логирует сообщение об ошибке
func (l *LogrusLogger) Error(msg string, args ...interface{}) {
	l.entry.Errorf(msg, args...)
}

// Debug логирует отладочное сообщение
func (l *LogrusLogger) Debug(msg string, args ...interface{}) {
	l.entry.Debugf(msg, args...)
}

// WithField возвращает логгер с дополнительным полем
func (l *LogrusLogger) WithField(key string, value interface{}) application.Logger {
	return &LogrusLogger{entry: l.entry.WithField(key, value)}
}
