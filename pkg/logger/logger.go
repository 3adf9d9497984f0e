package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how the process logs.
type Options struct {
	Level      string
	File       string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	JSON       bool
}

func NewLogger(opts Options) {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		logFile := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    valueOr(opts.MaxSize, 50),
			MaxBackups: valueOr(opts.MaxBackups, 3),
			MaxAge:     valueOr(opts.MaxAge, 28),
		}
		// Set log output to the file and console
		out = io.MultiWriter(os.Stdout, logFile)
	}
	logrus.SetOutput(out)

	if opts.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	logrus.Info("Logging has been initialized...")
}

// With returns an entry carrying the given key/value pairs.
func With(kv ...any) *logrus.Entry {
	return logrus.WithFields(Fields(kv...))
}

func Debug(msg string, kv ...any) {
	With(kv...).Debug(msg)
}

func Info(msg string, kv ...any) {
	With(kv...).Info(msg)
}

func Warn(msg string, kv ...any) {
	With(kv...).Warn(msg)
}

func Error(msg string, kv ...any) {
	With(kv...).Error(msg)
}

// Fields turns alternating key/value arguments into logrus fields.
// A trailing key without a value is kept under "extra".
func Fields(kv ...any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			fields["extra"] = kv[i]
			break
		}
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}

func valueOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
