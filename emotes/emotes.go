// Package emotes loads the local emote mapping and spots emote names
// inside chat messages. The mapping file is a JSON object of emote name
// to image path; entries whose image is missing on disk are skipped so
// downstream consumers only ever see renderable emotes.
package emotes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Set holds the usable emote mappings.
type Set struct {
	paths   map[string]string
	pattern *regexp.Regexp
}

// Load reads the mapping file. A missing file is not an error: it
// returns an empty set and emote handling stays off.
func Load(file string) (*Set, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("emote mapping not found, emote handling disabled", slog.String("file", file))
			return &Set{}, nil
		}
		return nil, fmt.Errorf("read emote mapping: %w", err)
	}
	var mapping map[string]string
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return nil, fmt.Errorf("parse emote mapping %s: %w", file, err)
	}
	s := &Set{paths: make(map[string]string, len(mapping))}
	for name, path := range mapping {
		if name == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			slog.Warn("emote image missing, skipping", slog.String("emote", name), slog.String("path", path))
			continue
		}
		s.paths[name] = path
	}
	s.compile()
	slog.Info("emote mappings loaded", slog.Int("count", len(s.paths)), slog.String("file", file))
	return s, nil
}

// compile builds the alternation used by FindAll. Longer names come
// first so an emote whose name prefixes another cannot shadow it.
func (s *Set) compile() {
	if len(s.paths) == 0 {
		return
	}
	names := make([]string, 0, len(s.paths))
	for name := range s.paths {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	escaped := make([]string, len(names))
	for i, name := range names {
		escaped[i] = regexp.QuoteMeta(name)
	}
	s.pattern = regexp.MustCompile(strings.Join(escaped, "|"))
}

// Len reports how many emotes are usable.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.paths)
}

// Path returns the image path for an emote name.
func (s *Set) Path(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	p, ok := s.paths[name]
	return p, ok
}

// Names returns all usable emote names, sorted.
func (s *Set) Names() []string {
	if s == nil || len(s.paths) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.paths))
	for name := range s.paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindAll returns the emote names appearing in text, leftmost first,
// non-overlapping. A nil or empty set yields nil.
func (s *Set) FindAll(text string) []string {
	if s == nil || s.pattern == nil {
		return nil
	}
	return s.pattern.FindAllString(text, -1)
}
