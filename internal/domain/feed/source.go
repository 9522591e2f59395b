package feed

import (
	"strings"
	"sync"

	"retrocast-server-go/internal/platform/config"
)

// Source is one configured feed plus the watermark of the newest item a
// session has delivered from it. The watermark starts unset, which accepts
// every candidate on the first cycle, and only ever moves forward.
//
// Timestamp policy: timestamps are compared as raw strings in byte order,
// the same order the upstream feed documents use for their published fields.
// This is deliberate and documented rather than fixed: feeds mixing date
// formats or time zones will not sort chronologically, and integrators who
// need true chronological order must normalize timestamps upstream.
type Source struct {
	Name         string
	URL          string
	SkipKeywords []string

	mu           sync.RWMutex
	watermark    string
	hasWatermark bool
}

func NewSource(cfg config.SourceConfig) *Source {
	return &Source{
		Name:         cfg.Name,
		URL:          cfg.URL,
		SkipKeywords: cfg.SkipKeywords,
	}
}

// Accepts reports whether an item with the given timestamp is strictly newer
// than the watermark. An unset watermark accepts everything; a missing
// timestamp sorts lowest and is never newer than a set watermark.
func (s *Source) Accepts(timestamp string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasWatermark {
		return true
	}
	return timestamp > s.watermark
}

// Advance moves the watermark up to timestamp. Regressions are ignored so
// the watermark stays monotonically non-decreasing.
func (s *Source) Advance(timestamp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasWatermark || timestamp > s.watermark {
		s.watermark = timestamp
		s.hasWatermark = true
	}
}

// Watermark returns the current watermark and whether it has been set.
func (s *Source) Watermark() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watermark, s.hasWatermark
}

// SkipsURL reports whether the candidate URL matches one of the source's
// skip keywords (case insensitive substring match).
func (s *Source) SkipsURL(url string) bool {
	if len(s.SkipKeywords) == 0 {
		return false
	}
	lower := strings.ToLower(url)
	for _, kw := range s.SkipKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
