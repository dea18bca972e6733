// Package logging routes log output to size-rotated files
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// File describes one rotated log file. Zero values get the defaults below.
type File struct {
	Path       string
	MaxSizeMB  int // default 100
	MaxBackups int // default 3
	MaxAgeDays int // default 28
	Compress   bool
}

func (f File) withDefaults() File {
	if f.MaxSizeMB <= 0 {
		f.MaxSizeMB = 100
	}
	if f.MaxBackups <= 0 {
		f.MaxBackups = 3
	}
	if f.MaxAgeDays <= 0 {
		f.MaxAgeDays = 28
	}
	return f
}

// Rotating opens f for appending through lumberjack. The directory is
// created on first write.
func Rotating(f File) io.WriteCloser {
	f = f.withDefaults()
	return &lumberjack.Logger{
		Filename:   f.Path,
		MaxSize:    f.MaxSizeMB,
		MaxBackups: f.MaxBackups,
		MaxAge:     f.MaxAgeDays,
		Compress:   f.Compress,
	}
}

// Setup sends the standard logger to stdout and, when f.Path is set, to the
// rotated file as well. The returned closer releases the file.
func Setup(f File) io.Closer {
	if f.Path == "" {
		log.SetOutput(os.Stdout)
		return io.NopCloser(nil)
	}

	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("[LOG] cannot create %s, logging to stdout only: %v", dir, err)
			return io.NopCloser(nil)
		}
	}

	file := Rotating(f)
	log.SetOutput(io.MultiWriter(os.Stdout, file))
	f = f.withDefaults()
	log.Printf("[LOG] writing to %s (max %dMB, %d backups, %dd, compress=%v)",
		f.Path, f.MaxSizeMB, f.MaxBackups, f.MaxAgeDays, f.Compress)
	return file
}
