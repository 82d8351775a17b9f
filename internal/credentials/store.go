package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"dripl/internal/logging"
)

// Bundle describes one credential file candidate.
type Bundle struct {
	Path   string
	Exists bool
	Size   int64
	Lines  int
}

// Store holds the credential pool enumerated at startup.
type Store struct {
	candidates []string
	bundles    []Bundle
}

// Load inspects each candidate path and keeps the ones that exist, preserving
// configuration order. A nil or empty candidate list yields an empty store.
func Load(candidates []string, logger *slog.Logger) *Store {
	log := logging.NewComponentLogger(logger, "credentials")
	store := &Store{candidates: append([]string(nil), candidates...)}
	for _, path := range store.candidates {
		bundle, err := Inspect(path)
		if err != nil {
			logging.WarnWithContext(log, "credential bundle unreadable", "credential_unreadable",
				logging.String(logging.FieldCredential, path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check file permissions"),
			)
			continue
		}
		if !bundle.Exists {
			log.Info("credential bundle missing; skipping", logging.String(logging.FieldCredential, path))
			continue
		}
		store.bundles = append(store.bundles, bundle)
	}
	log.Info("credential pool ready",
		logging.Int("configured", len(store.candidates)),
		logging.Int("available", len(store.bundles)),
	)
	return store
}

// Bundles returns the available bundles in configuration order.
func (s *Store) Bundles() []Bundle {
	if s == nil {
		return nil
	}
	return append([]Bundle(nil), s.bundles...)
}

// Paths returns the available bundle paths in configuration order.
func (s *Store) Paths() []string {
	if s == nil {
		return nil
	}
	paths := make([]string, 0, len(s.bundles))
	for _, b := range s.bundles {
		paths = append(paths, b.Path)
	}
	return paths
}

// Health re-inspects every configured candidate, including missing ones.
// It never alters the pool used for retrieval.
func (s *Store) Health() []Bundle {
	if s == nil {
		return nil
	}
	out := make([]Bundle, 0, len(s.candidates))
	for _, path := range s.candidates {
		bundle, err := Inspect(path)
		if err != nil {
			bundle = Bundle{Path: path}
		}
		out = append(out, bundle)
	}
	return out
}

// Inspect reports existence, size and line count for path. A missing file is
// not an error; it yields a bundle with Exists false.
func Inspect(path string) (Bundle, error) {
	bundle := Bundle{Path: path}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return bundle, nil
		}
		return bundle, fmt.Errorf("stat credential: %w", err)
	}
	if info.IsDir() {
		return bundle, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return bundle, fmt.Errorf("open credential: %w", err)
	}
	defer file.Close()

	lines, err := countLines(file)
	if err != nil {
		return bundle, fmt.Errorf("read credential: %w", err)
	}
	bundle.Exists = true
	bundle.Size = info.Size()
	bundle.Lines = lines
	return bundle, nil
}

func countLines(r io.Reader) (int, error) {
	buf := make([]byte, 32*1024)
	count := 0
	last := byte('\n')
	for {
		n, err := r.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if last != '\n' {
		count++
	}
	return count, nil
}
