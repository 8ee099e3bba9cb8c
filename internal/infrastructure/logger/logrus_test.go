package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestLogrusLogger_Levels(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.InfoLevel)
	l := FromEntry(logrus.NewEntry(log))

	l.Debug("скрыто %d", 1)
	l.Info("камера %s", "cam-1")
	l.Error("ошибка %v", "boom")

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != logrus.InfoLevel || entries[0].Message != "камера cam-1" {
		t.Errorf("unexpected info entry: %s %q", entries[0].Level, entries[0].Message)
	}
	if entries[1].Level != logrus.ErrorLevel || entries[1].Message != "ошибка boom" {
		t.Errorf("unexpected error entry: %s %q", entries[1].Level, entries[1].Message)
	}
}

func TestLogrusLogger_WithField(t *testing.T) {
	log, hook := test.NewNullLogger()
	l := FromEntry(logrus.NewEntry(log))

	l.WithField("component", "camera-session").Info("готово")

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected an entry")
	}
	if got := entry.Data["component"]; got != "camera-session" {
		t.Errorf("expected component field, got %v", got)
	}
}

func TestNewLogrusLoggerWithOutput_Debug(t *testing.T) {
	var buf bytes.Buffer

	NewLogrusLoggerWithOutput(&buf, false).Debug("first")
	if buf.Len() != 0 {
		t.Errorf("debug must be disabled, got %q", buf.String())
	}

	NewLogrusLoggerWithOutput(&buf, true).Debug("second")
	if !strings.Contains(buf.String(), "second") {
		t.Errorf("expected debug message in output, got %q", buf.String())
	}
}
