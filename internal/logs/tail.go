package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CurrentName is the pointer the daemon keeps at its active per-run log.
const CurrentName = "dripl.log"

const defaultPollInterval = 250 * time.Millisecond

// Result carries lines read from a log and the offset just past them.
type Result struct {
	Lines  []string
	Offset int64
}

// CurrentPath returns the active log pointer inside logDir.
func CurrentPath(logDir string) string {
	return filepath.Join(logDir, CurrentName)
}

// Last returns up to limit trailing lines. A missing file yields an empty
// result; limit <= 0 only reports the end offset.
func Last(path string, limit int) (Result, error) {
	if limit <= 0 {
		offset, err := scan(path, 0, func(string) {})
		return Result{Offset: offset}, err
	}
	ring := make([]string, limit)
	count := 0
	offset, err := scan(path, 0, func(line string) {
		ring[count%limit] = line
		count++
	})
	if err != nil {
		return Result{}, err
	}
	n := min(count, limit)
	lines := make([]string, n)
	start := count - n
	for i := range n {
		lines[i] = ring[(start+i)%limit]
	}
	return Result{Lines: lines, Offset: offset}, nil
}

// Since returns the complete lines written after offset. An offset beyond
// the end of the file means it was truncated or replaced, so reading
// restarts from the beginning.
func Since(path string, offset int64) (Result, error) {
	var lines []string
	next, err := scan(path, offset, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return Result{Offset: offset}, err
	}
	return Result{Lines: lines, Offset: next}, nil
}

// Follow polls path and passes newly appended lines to emit until ctx is
// done or emit fails. When the pointer moves to a different file, reading
// restarts at its beginning.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, emit func([]string) error) error {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	current, _ := os.Stat(path)
	for {
		if info, err := os.Stat(path); err == nil {
			if current != nil && !os.SameFile(current, info) {
				offset = 0
			}
			current = info
		}

		res, err := Since(path, offset)
		if err != nil {
			return err
		}
		offset = res.Offset
		if len(res.Lines) > 0 {
			if err := emit(res.Lines); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// scan visits each complete line after offset and returns the offset just
// past the last one visited.
func scan(path string, offset int64, visit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return offset, fmt.Errorf("log path %q is a directory", path)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return offset, nil
			}
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		visit(strings.TrimRight(line, "\r\n"))
	}
}
