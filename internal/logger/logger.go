package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// rotatingWriter is an io.Writer that rolls the log file over once it
// exceeds a size limit, keeping a fixed number of numbered backups
// (sim.log -> sim.log.1 -> sim.log.2 ...).
type rotatingWriter struct {
	path       string
	maxBytes   int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

// Setup routes the standard logger to both stdout and a size-rotated
// file. On any file error it falls back to stdout only; a scheduled
// simulation must never die because of its own log file.
func Setup(path string, maxSizeMB int64, maxBackups int) {
	w := &rotatingWriter{
		path:       path,
		maxBytes:   maxSizeMB * 1024 * 1024,
		maxBackups: maxBackups,
	}
	if err := w.open(); err != nil {
		log.Printf("Failed to open log file, using stdout only: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, w))
	log.SetFlags(log.LstdFlags)
}

func (w *rotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			// Keep writing to the oversized file rather than drop lines.
			fmt.Fprintf(os.Stderr, "Log rotation failed: %v\n", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *rotatingWriter) rotate() error {
	// Shift existing backups up by one, dropping the oldest.
	for i := w.maxBackups - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", w.path, i)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		os.Rename(src, fmt.Sprintf("%s.%d", w.path, i+1))
	}
	if _, err := os.Stat(w.path); err == nil {
		os.Rename(w.path, w.path+".1")
	}

	// The old handle stays open until the new file is ready, so a failed
	// rotation keeps appending to the oversized file instead of dropping
	// lines.
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if w.file != nil {
		w.file.Close()
	}
	w.file = f
	w.size = 0
	return nil
}
