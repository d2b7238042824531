// Package stylist owns the set of active stylesheets and the invalidation
// map built from them. The map is rebuilt off to the side and published
// only when the build succeeds, so readers always see a complete map.
package stylist

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"cssinv/common"
	"cssinv/config"
	"cssinv/css"
	"cssinv/fallible"
	"cssinv/invalidation"
)

// Sheet is a parsed stylesheet together with where it came from.
type Sheet struct {
	Source string
	Sheet  *css.Stylesheet
}

// Stylist keeps stylesheets and publishes the invalidation map for them.
//
// Methods changing the set of sheets or rebuilding are serialized. Map may be
// called from any goroutine at any time.
type Stylist struct {
	log     *zap.Logger
	parser  *css.Parser
	quirks  common.QuirksMode
	medium  string
	charset string
	limit   int

	mu     sync.Mutex
	sheets []Sheet

	current atomic.Pointer[invalidation.Map]
}

// WithQuirksMode overrides the configured quirks mode.
func WithQuirksMode(q common.QuirksMode) func(*Stylist) {
	return func(s *Stylist) {
		s.quirks = q
	}
}

// WithMedium overrides the configured medium @media blocks are evaluated
// against.
func WithMedium(medium string) func(*Stylist) {
	return func(s *Stylist) {
		s.medium = medium
	}
}

// New creates a Stylist with no sheets. An empty map is published right
// away so Map never returns nil.
func New(cfg *config.Config, log *zap.Logger, options ...func(*Stylist)) *Stylist {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Stylist{
		log:     log.Named("stylist"),
		parser:  css.NewParser(log),
		quirks:  cfg.Document.QuirksMode,
		medium:  cfg.Document.Media,
		charset: cfg.Document.Charset,
		limit:   cfg.Limits.MaxDependencies,
	}
	for _, o := range options {
		o(s)
	}
	s.current.Store(invalidation.New(log))
	return s
}

// Map returns the published map. It must be treated as read-only.
func (s *Stylist) Map() *invalidation.Map {
	return s.current.Load()
}

// QuirksMode returns the quirks mode the map is built for.
func (s *Stylist) QuirksMode() common.QuirksMode {
	return s.quirks
}

// Medium returns the medium the map is built for.
func (s *Stylist) Medium() string {
	return s.medium
}

// AddStylesheet parses already decoded stylesheet text and appends it to the
// active sheets. The map is not rebuilt.
func (s *Stylist) AddStylesheet(source string, data []byte) *css.Stylesheet {
	sheet := s.parser.Parse(data, source)
	s.add(source, sheet)
	return sheet
}

func (s *Stylist) add(source string, sheet *css.Stylesheet) {
	for _, w := range sheet.Warnings {
		s.log.Warn("Stylesheet problem", zap.String("source", source), zap.String("problem", w))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets = append(s.sheets, Sheet{Source: source, Sheet: sheet})
}

// RemoveStylesheet drops every sheet loaded from source and reports whether
// there was any. The map is not rebuilt.
func (s *Stylist) RemoveStylesheet(source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.sheets)
	s.sheets = slices.DeleteFunc(s.sheets, func(sh Sheet) bool {
		return sh.Source == source
	})
	return len(s.sheets) != n
}

// Sheets returns the active sheets in cascade order.
func (s *Stylist) Sheets() []Sheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sheets)
}

// Rebuild builds a new map from the active sheets and publishes it. When the
// build runs out of its allocation budget the previously published map stays
// in place and the error is returned.
func (s *Stylist) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := invalidation.New(s.log, invalidation.WithAllocator(fallible.NewBudget(s.limit)))

	var count int
	for _, sh := range s.sheets {
		for sel := range sh.Sheet.Selectors(s.medium) {
			if err := m.NoteSelector(sel, s.quirks); err != nil {
				s.log.Warn("Keeping previous invalidation map",
					zap.String("source", sh.Source),
					zap.Int("selectors", count),
					zap.Error(err))
				return fmt.Errorf("unable to rebuild invalidation map: %w", err)
			}
			count++
		}
	}

	s.current.Store(m)
	s.log.Info("Invalidation map rebuilt",
		zap.Int("sheets", len(s.sheets)),
		zap.Int("selectors", count),
		zap.Int("dependencies", m.Len()),
		zap.Stringer("flags", m.Flags()),
		zap.Stringer("quirks", s.quirks),
		zap.String("medium", s.medium))
	return nil
}
