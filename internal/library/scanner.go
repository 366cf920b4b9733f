// Package library discovers audio files on disk and turns them into playlist tracks.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/pelican/internal/domain"
	"github.com/MrSnakeDoc/pelican/internal/logger"
)

// Extensions lists the audio formats the player can handle.
var Extensions = []string{".mp3", ".wav", ".flac", ".m4a", ".aac", ".ogg"}

// ErrNoRoot is returned when no music directory is configured.
var ErrNoRoot = errors.New("music directory not configured")

// Scanner walks a directory tree for audio files.
type Scanner struct {
	root   string
	exts   map[string]bool
	logger logger.Logger
}

// NewScanner creates a scanner rooted at root.
func NewScanner(root string, log logger.Logger) *Scanner {
	exts := make(map[string]bool, len(Extensions))
	for _, e := range Extensions {
		exts[e] = true
	}
	return &Scanner{root: root, exts: exts, logger: log}
}

// Root returns the configured music directory.
func (s *Scanner) Root() string {
	return s.root
}

// Scan returns every audio file under the root, sorted by path.
// Unreadable subdirectories are skipped; an unreadable root is an error.
func (s *Scanner) Scan() ([]domain.Track, error) {
	if s.root == "" {
		return nil, ErrNoRoot
	}

	var tracks []domain.Track
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return err
			}
			s.logger.Warn("skipping unreadable path", logger.String("path", path), logger.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !s.exts[ext] {
			return nil
		}
		tracks = append(tracks, domain.Track{
			Name: strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
			Path: path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.root, err)
	}

	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Path < tracks[j].Path })
	s.logger.Debug("music library scanned", logger.String("root", s.root), logger.Int("tracks", len(tracks)))
	return tracks, nil
}
