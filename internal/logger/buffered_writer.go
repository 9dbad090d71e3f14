package logger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/tphakala/cropdoc/internal/errors"
)

const (
	logFileMode   = 0o600
	fileBufSize   = 32 << 10
	flushInterval = 5 * time.Second
)

// fileWriter buffers JSON log lines for the log file and flushes them on a
// timer, so a burst of scans does not turn into a write syscall per line.
type fileWriter struct {
	mu   sync.Mutex
	f    *os.File
	buf  *bufio.Writer
	stop chan struct{}
	done chan struct{}

	closeOnce sync.Once
}

var _ io.WriteCloser = (*fileWriter)(nil)

// openFileWriter opens path for appending and starts the flush timer.
func openFileWriter(path string) (*fileWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode) //nolint:gosec // path comes from config
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w := &fileWriter{
		f:    f,
		buf:  bufio.NewWriterSize(f, fileBufSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.flushLoop()
	return w, nil
}

func (w *fileWriter) flushLoop() {
	defer close(w.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			// a failing flush shows up again on the next Write
			_ = w.Flush()
		}
	}
}

func (w *fileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf == nil {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

// Flush hands buffered lines to the OS without fsync.
func (w *fileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf == nil {
		return nil
	}
	return w.buf.Flush()
}

// Close stops the timer, then flushes, syncs and closes the file. Calling
// it twice is harmless.
func (w *fileWriter) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stop)
		<-w.done

		w.mu.Lock()
		defer w.mu.Unlock()
		err = errors.Join(w.buf.Flush(), w.f.Sync(), w.f.Close())
		w.buf, w.f = nil, nil
	})
	return err
}
