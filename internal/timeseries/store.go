// Package timeseries implements the durable sample log: one flat text file
// holding a header line followed by "<timestamp>;<value>" rows in append
// order.
//
// A Store is not safe for concurrent mutation. The controller owns the only
// instance and serializes every append, delete and clear through its loop.
package timeseries

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/micro-nova/templog/internal/models"
)

const (
	// FileName is the default store file name inside the data directory.
	FileName = "temperature_data.csv"
	// DefaultMaxWindow caps Window requests when no cap is configured.
	DefaultMaxWindow = 1000

	fileMode = 0644
)

var (
	// ErrInvalidWindow is returned by Window for n <= 0.
	ErrInvalidWindow = errors.New("timeseries: window size must be positive")
	// ErrInvalidRow is returned by AppendRaw for empty or multi-line rows.
	ErrInvalidRow = errors.New("timeseries: row must be a single non-empty line")

	errUnchanged = errors.New("timeseries: nothing to rewrite")
)

// Store is a file-backed sample log.
type Store struct {
	path      string
	maxWindow int
}

// New returns a Store backed by path. Window requests larger than maxWindow
// are clamped to it; maxWindow <= 0 selects DefaultMaxWindow.
func New(path string, maxWindow int) *Store {
	if maxWindow <= 0 {
		maxWindow = DefaultMaxWindow
	}
	return &Store{path: path, maxWindow: maxWindow}
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// MaxWindow returns the largest window Window will return.
func (s *Store) MaxWindow() int { return s.maxWindow }

func (s *Store) tmpPath() string { return s.path + ".tmp" }

// Init creates the store file with its header if it is missing or empty and
// removes a leftover temp file from an interrupted rewrite. An existing file
// that lacks the header or holds malformed rows is rewritten with the header
// and its valid rows.
func (s *Store) Init() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("timeseries: create dir: %w", err)
	}
	if err := os.Remove(s.tmpPath()); err == nil {
		slog.Warn("timeseries: removed leftover temp file", "path", s.tmpPath())
	}

	info, err := os.Stat(s.path)
	switch {
	case err == nil && info.Size() > 0:
		if _, err := s.filter(func(models.Sample) bool { return false }); err != nil {
			return err
		}
		return nil
	case err == nil, errors.Is(err, os.ErrNotExist):
		slog.Info("timeseries: creating store", "path", s.path)
		return s.replace(func(*bufio.Writer) error { return nil })
	default:
		return fmt.Errorf("timeseries: stat %s: %w", s.path, err)
	}
}

// Append adds sample to the end of the log. The row is on disk when Append
// returns.
func (s *Store) Append(sample models.Sample) error {
	return s.appendLine(formatSample(sample))
}

// AppendRaw appends a caller-formatted row verbatim. The format is trusted;
// a malformed row is skipped by readers and dropped by the next rewrite.
func (s *Store) AppendRaw(row string) error {
	row = strings.TrimRight(row, "\r\n")
	if strings.TrimSpace(row) == "" || strings.ContainsAny(row, "\r\n") {
		return ErrInvalidRow
	}
	return s.appendLine(row)
}

func (s *Store) appendLine(line string) error {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, fileMode)
	if err != nil {
		return fmt.Errorf("timeseries: open %s: %w", s.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("timeseries: stat %s: %w", s.path, err)
	}

	buf := make([]byte, 0, len(Header)+len(line)+3)
	switch size := info.Size(); {
	case size == 0:
		buf = append(buf, Header+"\n"...)
	default:
		// A crash mid-append can leave the last row unterminated; start
		// on a fresh line so the new row stays parseable.
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err == nil && last[0] != '\n' {
			buf = append(buf, '\n')
		}
	}
	buf = append(buf, line...)
	buf = append(buf, '\n')

	if _, err := f.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("timeseries: append %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("timeseries: sync %s: %w", s.path, err)
	}
	return f.Close()
}

// Window returns the most recent n valid samples, oldest first. It scans the
// file once and keeps at most n samples in memory regardless of file size.
// n <= 0 returns ErrInvalidWindow; n above MaxWindow is clamped. A missing
// or empty store yields an empty, non-nil slice.
func (s *Store) Window(n int) ([]models.Sample, error) {
	if n <= 0 {
		return nil, ErrInvalidWindow
	}
	if n > s.maxWindow {
		n = s.maxWindow
	}

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Sample{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("timeseries: open %s: %w", s.path, err)
	}
	defer f.Close()

	r := newRing(n)
	err = scanLines(f, func(line []byte, ok bool) {
		if !ok {
			return
		}
		if sample, valid := parseLine(line); valid {
			r.push(sample)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("timeseries: read %s: %w", s.path, err)
	}
	return r.samples(), nil
}

// Delete removes every sample whose timestamp equals ts and returns how many
// were removed. The file is rewritten through a temp file; malformed rows are
// dropped and a missing header is restored on the way, so a delete doubles as
// a repair pass. When nothing matches and nothing needs repair the file is
// not touched.
func (s *Store) Delete(ts int64) (int, error) {
	return s.filter(func(sample models.Sample) bool { return sample.Timestamp == ts })
}

// filter rewrites the store without the samples match selects and returns
// how many it removed.
func (s *Store) filter(match func(models.Sample) bool) (int, error) {
	src, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("timeseries: open %s: %w", s.path, err)
	}
	defer src.Close()

	removed, dropped := 0, 0
	headerOK := false
	err = s.replace(func(w *bufio.Writer) error {
		first := true
		var werr error
		scanErr := scanLines(src, func(line []byte, ok bool) {
			isFirst := first
			first = false
			if werr != nil {
				return
			}
			if !ok {
				dropped++
				return
			}
			if isFirst && strings.TrimSpace(string(line)) == Header {
				headerOK = true
				return
			}
			sample, valid := parseLine(line)
			if !valid {
				dropped++
				return
			}
			if match(sample) {
				removed++
				return
			}
			if _, werr = w.WriteString(strings.TrimSpace(string(line))); werr == nil {
				werr = w.WriteByte('\n')
			}
		})
		if scanErr != nil {
			return fmt.Errorf("read %s: %w", s.path, scanErr)
		}
		if werr != nil {
			return werr
		}
		if removed == 0 && dropped == 0 && headerOK {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !headerOK {
		slog.Warn("timeseries: restored missing header", "path", s.path)
	}
	if dropped > 0 {
		slog.Warn("timeseries: dropped malformed rows", "count", dropped, "path", s.path)
	}
	return removed, nil
}

// Clear discards every sample, leaving a file with only the header.
func (s *Store) Clear() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("timeseries: create dir: %w", err)
	}
	return s.replace(func(*bufio.Writer) error { return nil })
}

// WriteTo streams the raw store file to w. A missing store is written as a
// bare header.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		n, err := io.WriteString(w, Header+"\n")
		return int64(n), err
	}
	if err != nil {
		return 0, fmt.Errorf("timeseries: open %s: %w", s.path, err)
	}
	defer f.Close()
	return io.Copy(w, f)
}

// replace writes the header and whatever fill adds to a temp file beside the
// store, syncs it and renames it over the store. The existing file stays
// readable until the rename. If fill fails the temp file is removed and the
// store is untouched.
func (s *Store) replace(fill func(w *bufio.Writer) error) error {
	tmpPath := s.tmpPath()
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("timeseries: create %s: %w", tmpPath, err)
	}

	bw := bufio.NewWriter(tmp)
	err = func() error {
		if _, err := bw.WriteString(Header + "\n"); err != nil {
			return err
		}
		if err := fill(bw); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
		return tmp.Sync()
	}()
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		if errors.Is(err, errUnchanged) {
			return err
		}
		return fmt.Errorf("timeseries: write %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("timeseries: rename %s: %w", tmpPath, err)
	}
	syncDir(filepath.Dir(s.path))
	return nil
}

// syncDir makes a completed rename durable. Failure only weakens durability
// of the rename, so it is logged at debug level.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		slog.Debug("timeseries: dir sync failed", "dir", dir, "err", err)
	}
}
