package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// levelWriter writes one level's entries to Director/<date>/<level>.log,
// rotating with lumberjack.
type levelWriter struct {
	config  Config
	level   string
	now     func() time.Time
	mu      sync.Mutex
	date    string
	current *lumberjack.Logger
}

func newLevelWriter(config Config, level string) *levelWriter {
	return &levelWriter{
		config: config,
		level:  level,
		now:    time.Now,
	}
}

// Write implements io.Writer.
func (w *levelWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	date := w.now().Format("2006-01-02")
	if w.current == nil || w.date != date {
		if w.current != nil {
			_ = w.current.Close()
		}
		w.current = w.open(date)
		w.date = date
	}
	return w.current.Write(p)
}

func (w *levelWriter) open(date string) *lumberjack.Logger {
	dirPath := filepath.Join(w.config.Director, date)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		// Fall back to the base directory if the dated one cannot be created
		dirPath = w.config.Director
		_ = os.MkdirAll(dirPath, 0o755)
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(dirPath, w.level+".log"),
		MaxSize:    w.config.MaxSize,
		MaxBackups: w.config.MaxBackups,
		MaxAge:     w.config.MaxAge,
		Compress:   w.config.Compress,
		LocalTime:  true,
	}
}

// Close closes the current file.
func (w *levelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current == nil {
		return nil
	}
	err := w.current.Close()
	w.current = nil
	w.date = ""
	return err
}

var (
	writerRegistry   []*levelWriter
	writerRegistryMu sync.Mutex
)

func newLevelWriterWithRegistry(config Config, level string) *levelWriter {
	w := newLevelWriter(config, level)
	writerRegistryMu.Lock()
	writerRegistry = append(writerRegistry, w)
	writerRegistryMu.Unlock()
	return w
}

// CloseAllWriters closes every file writer opened by NewLogger.
func CloseAllWriters() error {
	writerRegistryMu.Lock()
	defer writerRegistryMu.Unlock()

	var lastErr error
	for _, w := range writerRegistry {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	writerRegistry = nil
	return lastErr
}

var _ io.WriteCloser = (*levelWriter)(nil)
