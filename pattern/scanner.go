package pattern

import (
	"fmt"
	"sync"

	"github.com/flier/gohs/hyperscan"
)

// Session is a compiled multi-pattern database: every Pattern handed to
// NewSession is matched in a single pass over each section scanned, rather
// than looping the section once per expression.
type Session struct {
	patterns []*Pattern
	db       hyperscan.BlockDatabase
	scratch  *hyperscan.Scratch
	mu       sync.Mutex
}

// NewSession compiles patterns into one Hyperscan block-mode database.
func NewSession(patterns []*Pattern) (*Session, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("pattern: no patterns specified")
	}

	hsPatterns := make([]*hyperscan.Pattern, len(patterns))
	for idx, p := range patterns {
		hp := hyperscan.NewPattern(p.toRegex(), hyperscan.DotAll)
		hp.Id = idx
		hsPatterns[idx] = hp
	}

	blockDB, err := hyperscan.NewBlockDatabase(hsPatterns...)
	if err != nil {
		return nil, fmt.Errorf("pattern: error compiling pattern database: %w", err)
	}

	scratch, err := hyperscan.NewScratch(blockDB)
	if err != nil {
		blockDB.Close()
		return nil, fmt.Errorf("pattern: error allocating scratch: %w", err)
	}

	return &Session{patterns: patterns, db: blockDB, scratch: scratch}, nil
}

// Close releases the underlying Hyperscan resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scratch != nil {
		s.scratch.Free()
		s.scratch = nil
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Scan matches every compiled pattern against one contiguous section of
// memory starting at baseVA, returning a slice aligned to the pattern order
// passed to NewSession, each holding the ascending list of VAs where that
// pattern matched. Indexing by position rather than by *Pattern lets the
// same *Pattern value appear more than once in a single Session without its
// matches being merged across requests that happen to share a pointer.
//
// Because every Pattern has a fixed byte width, the match's start offset is
// recovered as the callback's end offset minus the pattern's width. This
// sidesteps needing Hyperscan's SOM_LEFTMOST compile mode (whose "from" is
// otherwise unreliable, and which rejects several pattern shapes) while
// still reporting an exact match position.
func (s *Session) Scan(baseVA uint64, data []byte) ([][]uint64, error) {
	results := make([][]uint64, len(s.patterns))
	if len(data) == 0 {
		return results, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handler := hyperscan.MatchHandler(func(id uint, from, to uint64, flags uint, context interface{}) error {
		p := s.patterns[id]
		width := uint64(p.Len())
		if to < width {
			return nil
		}
		start := to - width
		va := baseVA + start + uint64(p.Anchor)
		results[id] = append(results[id], va)
		return nil
	})

	if err := s.db.Scan(data, s.scratch, handler, nil); err != nil {
		return nil, fmt.Errorf("pattern: scan failed: %w", err)
	}
	return results, nil
}
