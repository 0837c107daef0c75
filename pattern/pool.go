package pattern

import (
	"fmt"

	"github.com/flier/gohs/hyperscan"
)

// defaultPoolSize bounds how many sections scan concurrently in one
// ScanSections call; sections beyond this count queue on the shared job
// channel the same way a hypermatcher pooled engine queues scan requests
// against a fixed set of workers.
const defaultPoolSize = 4

type sectionJob struct {
	index  int
	baseVA uint64
	data   []byte
}

type sectionResult struct {
	index   int
	matches [][]uint64
	err     error
}

// scanWorker owns its own scratch space cloned from the session's shared,
// read-only database, the same division of labor as hypermatcher's
// poolWorker: one worker per goroutine, each with independent scratch, all
// scanning against one compiled database.
type scanWorker struct {
	patterns []*Pattern
	db       hyperscan.BlockDatabase
	scratch  *hyperscan.Scratch
}

func newScanWorker(patterns []*Pattern, db hyperscan.BlockDatabase) (*scanWorker, error) {
	scratch, err := hyperscan.NewScratch(db)
	if err != nil {
		return nil, fmt.Errorf("pattern: error allocating worker scratch: %w", err)
	}
	return &scanWorker{patterns: patterns, db: db, scratch: scratch}, nil
}

func (w *scanWorker) scan(baseVA uint64, data []byte) ([][]uint64, error) {
	results := make([][]uint64, len(w.patterns))
	if len(data) == 0 {
		return results, nil
	}

	handler := hyperscan.MatchHandler(func(id uint, from, to uint64, flags uint, context interface{}) error {
		p := w.patterns[id]
		width := uint64(p.Len())
		if to < width {
			return nil
		}
		start := to - width
		va := baseVA + start + uint64(p.Anchor)
		results[id] = append(results[id], va)
		return nil
	})

	if err := w.db.Scan(data, w.scratch, handler, nil); err != nil {
		return nil, fmt.Errorf("pattern: scan failed: %w", err)
	}
	return results, nil
}

func (w *scanWorker) close() {
	w.scratch.Free()
}

// ScanSections matches every compiled pattern against each of the given
// sections concurrently, spreading the work across a small worker pool
// instead of serializing every section through one shared scratch buffer.
// Results are merged back in section order, so the returned per-pattern VA
// slices stay deterministic regardless of which worker finished first.
func (s *Session) ScanSections(baseVAs []uint64, datas [][]byte) ([][]uint64, error) {
	if len(baseVAs) != len(datas) {
		return nil, fmt.Errorf("pattern: baseVAs and datas length mismatch")
	}

	merged := make([][]uint64, len(s.patterns))
	if len(datas) == 0 {
		return merged, nil
	}

	poolSize := defaultPoolSize
	if poolSize > len(datas) {
		poolSize = len(datas)
	}

	workers := make([]*scanWorker, poolSize)
	for i := range workers {
		w, err := newScanWorker(s.patterns, s.db)
		if err != nil {
			for _, started := range workers[:i] {
				started.close()
			}
			return nil, err
		}
		workers[i] = w
	}
	defer func() {
		for _, w := range workers {
			w.close()
		}
	}()

	jobs := make(chan sectionJob)
	results := make(chan sectionResult, len(datas))

	for _, w := range workers {
		go func(w *scanWorker) {
			for job := range jobs {
				matches, err := w.scan(job.baseVA, job.data)
				results <- sectionResult{index: job.index, matches: matches, err: err}
			}
		}(w)
	}

	go func() {
		for i := range datas {
			jobs <- sectionJob{index: i, baseVA: baseVAs[i], data: datas[i]}
		}
		close(jobs)
	}()

	perSection := make([][][]uint64, len(datas))
	var firstErr error
	for range datas {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		perSection[r.index] = r.matches
	}
	if firstErr != nil {
		return nil, firstErr
	}

	for _, section := range perSection {
		for patIdx, vas := range section {
			merged[patIdx] = append(merged[patIdx], vas...)
		}
	}
	return merged, nil
}
