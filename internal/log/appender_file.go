package log

import (
	"gopkg.in/natefinch/lumberjack.v2"

	"firestige.xyz/strix/internal/config"
)

// AddFileAppender attaches a size-rotated file output.
func (m *MultiWriter) AddFileAppender(opts config.FileOutputConfig) *MultiWriter {
	writer := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,  // megabytes
		MaxBackups: opts.MaxBackups, // number of backups
		MaxAge:     opts.MaxAgeDays, // days
		Compress:   opts.Compress,   // compress the backups
	}
	m.writers = append(m.writers, writer)
	return m
}
