package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const megabyte = 1 << 20

// RotationConfig controls size-based rotation of the arena log.
type RotationConfig struct {
	// MaxSizeBytes is the size at which the file is rotated. Zero disables
	// rotation.
	MaxSizeBytes int64
	// MaxBackups is the number of rotated files kept as arena.log.1 through
	// arena.log.N. Zero keeps none.
	MaxBackups int
	// Compress gzips each backup as it is rotated out.
	Compress bool
}

// RotationMB builds a RotationConfig from the megabyte values used in the
// configuration file.
func RotationMB(maxSizeMB, maxBackups int) RotationConfig {
	return RotationConfig{
		MaxSizeBytes: int64(maxSizeMB) * megabyte,
		MaxBackups:   maxBackups,
	}
}

// DefaultRotationConfig returns 10MB files with three backups.
func DefaultRotationConfig() RotationConfig {
	return RotationMB(10, 3)
}

// RotatingWriter is an io.WriteCloser over a log file that rotates once the
// next write would push the file past its size limit. It is safe for
// concurrent use.
type RotatingWriter struct {
	mu   sync.Mutex
	path string
	cfg  RotationConfig
	file *os.File
	size int64
}

// NewRotatingWriter opens (or creates) path for appending, creating parent
// directories as needed.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	rw := &RotatingWriter{path: path, cfg: cfg}
	if err := rw.open(); err != nil {
		return nil, err
	}
	return rw, nil
}

func (rw *RotatingWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(rw.path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(rw.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	rw.file = f
	rw.size = info.Size()
	return nil
}

// Write appends p, rotating first when the limit would be exceeded. A
// failed rotation is reported on stderr and the write proceeds on the
// current file so no log line is lost.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return 0, os.ErrClosed
	}

	if rw.cfg.MaxSizeBytes > 0 && rw.size > 0 && rw.size+int64(len(p)) > rw.cfg.MaxSizeBytes {
		if err := rw.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "arena: log rotation failed: %v\n", err)
		}
	}

	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

// rotate must be called with mu held.
func (rw *RotatingWriter) rotate() error {
	if err := rw.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	rw.file = nil

	rw.shiftBackups()

	if rw.cfg.MaxBackups > 0 {
		first := rw.backup(1)
		if err := os.Rename(rw.path, first); err != nil {
			if openErr := rw.open(); openErr != nil {
				return fmt.Errorf("rename log file: %w (reopen: %v)", err, openErr)
			}
			return fmt.Errorf("rename log file: %w", err)
		}
		if rw.cfg.Compress {
			if err := gzipFile(first); err != nil {
				fmt.Fprintf(os.Stderr, "arena: compress %s: %v\n", first, err)
			}
		}
	} else if err := os.Truncate(rw.path, 0); err != nil {
		return fmt.Errorf("truncate log file: %w", err)
	}

	return rw.open()
}

// shiftBackups drops the oldest backup and renames N-1..1 to N..2.
func (rw *RotatingWriter) shiftBackups() {
	if rw.cfg.MaxBackups <= 0 {
		return
	}
	for _, suffix := range []string{"", ".gz"} {
		_ = os.Remove(rw.backup(rw.cfg.MaxBackups) + suffix)
	}
	for i := rw.cfg.MaxBackups - 1; i >= 1; i-- {
		for _, suffix := range []string{"", ".gz"} {
			from := rw.backup(i) + suffix
			if _, err := os.Stat(from); err == nil {
				_ = os.Rename(from, rw.backup(i+1)+suffix)
			}
		}
	}
}

func (rw *RotatingWriter) backup(n int) string {
	return fmt.Sprintf("%s.%d", rw.path, n)
}

// gzipFile replaces path with path.gz.
func gzipFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(dst)
	_, copyErr := io.Copy(zw, src)
	closeErr := zw.Close()
	fileErr := dst.Close()
	for _, err := range []error{copyErr, closeErr, fileErr} {
		if err != nil {
			_ = os.Remove(path + ".gz")
			return err
		}
	}
	return os.Remove(path)
}

// Close syncs and closes the file. Further writes return os.ErrClosed.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return nil
	}
	err := rw.file.Sync()
	if cerr := rw.file.Close(); err == nil {
		err = cerr
	}
	rw.file = nil
	return err
}

// Size returns the current size of the live log file in bytes.
func (rw *RotatingWriter) Size() int64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.size
}

// Path returns the live log file path.
func (rw *RotatingWriter) Path() string {
	return rw.path
}
