// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package logging

import (
	"daytrader/config"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeFormat = time.RFC3339

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates the application logger. The returned closer releases the log file, if any.
func New(c config.LogConfig) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output io.Writer
	var closer io.Closer = nopCloser{}
	switch c.Output {
	case "stdout":
		output = os.Stdout
	case "", "stderr":
		output = os.Stderr
	default:
		fileWriter := &lumberjack.Logger{
			Filename:   c.Output,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			Compress:   true,
		}
		output = fileWriter
		closer = fileWriter
	}
	return NewWithWriter(output, c.Format, level), closer, nil
}

// NewWithWriter creates a logger writing to w, either as json or in console format.
func NewWithWriter(w io.Writer, format string, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = timeFormat
	if format == "console" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.TimeOnly,
		}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
