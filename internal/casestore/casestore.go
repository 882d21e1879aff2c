// Package casestore implements the Case Store (C3): a content-addressed
// memory of prior successful header mappings, keyed by a hash of the
// sorted normalized header set.
package casestore

import (
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/crypto/blake2b"

	"github.com/wikisoft/rosterval/internal/domain"
	"github.com/wikisoft/rosterval/internal/schema"
)

const defaultMinOverlap = 0.3

// Store is the Case Store's in-process implementation. Reads go through
// the lock-free xsync maps; writes are serialized by mu so the inverted
// index and per-case records never drift apart.
type Store struct {
	mu sync.Mutex

	records     *xsync.MapOf[string, domain.CaseRecord]
	headerIndex *xsync.MapOf[string, []string] // normalized header -> case IDs
}

// New constructs an empty Case Store.
func New() *Store {
	return &Store{
		records:     xsync.NewMapOf[string, domain.CaseRecord](),
		headerIndex: xsync.NewMapOf[string, []string](),
	}
}

// caseID hashes the sorted, normalized header set with blake2b-256 and
// returns the hex digest.
func caseID(headers []string) string {
	normalized := normalizeAll(headers)
	sort.Strings(normalized)
	sum := blake2b.Sum256([]byte(strings.Join(normalized, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func normalizeAll(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = schema.Normalize(h)
	}
	return out
}

// Save upserts a case record, keyed by case ID, and keeps the inverted
// header index consistent with it. Concurrent callers are serialized.
func (s *Store) Save(headers []string, matches []domain.HeaderMatch, confidence float64, wasAutoApproved bool, humanCorrections map[string]string, metadata map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := caseID(headers)
	normalized := normalizeAll(headers)

	record := domain.CaseRecord{
		CaseID:            id,
		Timestamp:         time.Now(),
		Headers:           append([]string{}, headers...),
		NormalizedHeaders: normalized,
		Matches:           append([]domain.HeaderMatch{}, matches...),
		Confidence:        confidence,
		WasAutoApproved:   wasAutoApproved,
		HumanCorrections:  humanCorrections,
		Metadata:          metadata,
	}
	s.records.Store(id, record)

	for _, norm := range normalized {
		if norm == "" {
			continue
		}
		ids, _ := s.headerIndex.Load(norm)
		if !containsString(ids, id) {
			s.headerIndex.Store(norm, append(ids, id))
		}
	}

	return id
}

// FindSimilar ranks stored cases by Jaccard-like overlap against the
// query header set: shared normalized headers over the union size.
// Results below minOverlap (default 0.3 when <= 0) are excluded; the
// top k by descending similarity are returned.
func (s *Store) FindSimilar(headers []string, k int, minOverlap float64) []domain.CaseRecord {
	if minOverlap <= 0 {
		minOverlap = defaultMinOverlap
	}
	query := make(map[string]bool)
	for _, h := range normalizeAll(headers) {
		if h != "" {
			query[h] = true
		}
	}

	type scored struct {
		record domain.CaseRecord
		score  float64
	}
	var candidates []scored

	s.records.Range(func(_ string, rec domain.CaseRecord) bool {
		shared := 0
		union := make(map[string]bool, len(query))
		for h := range query {
			union[h] = true
		}
		for _, h := range rec.NormalizedHeaders {
			if h == "" {
				continue
			}
			if query[h] {
				shared++
			}
			union[h] = true
		}
		if len(union) == 0 {
			return true
		}
		score := float64(shared) / float64(len(union))
		if score >= minOverlap {
			candidates = append(candidates, scored{record: rec, score: score})
		}
		return true
	})

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].record.Timestamp.After(candidates[j].record.Timestamp)
	})

	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]domain.CaseRecord, len(candidates))
	for i, c := range candidates {
		out[i] = c.record
	}
	return out
}

// FindByHeader returns every stored case whose normalized header set
// contains header, sorted most-recent-first.
func (s *Store) FindByHeader(header string) []domain.CaseRecord {
	norm := schema.Normalize(header)
	ids, _ := s.headerIndex.Load(norm)

	out := make([]domain.CaseRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.records.Load(id); ok {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// FewShot distills up to k stored cases into prompt-ready examples,
// prioritizing human-corrected cases.
func (s *Store) FewShot(headers []string, k int) []domain.FewShotExample {
	similar := s.FindSimilar(headers, k*3, defaultMinOverlap)

	examples := make([]domain.FewShotExample, 0, len(similar))
	for _, rec := range similar {
		priority := 0
		if len(rec.HumanCorrections) > 0 {
			priority = 1
		}
		examples = append(examples, domain.FewShotExample{
			InputHeaders:     rec.Headers,
			OutputMatches:    rec.Matches,
			HumanCorrections: rec.HumanCorrections,
			Priority:         priority,
		})
	}

	sort.SliceStable(examples, func(i, j int) bool { return examples[i].Priority > examples[j].Priority })

	if k > 0 && len(examples) > k {
		examples = examples[:k]
	}
	return examples
}

// Stats summarizes the store's contents for observability.
func (s *Store) Stats() domain.CaseStoreStats {
	var total, approved int
	s.records.Range(func(_ string, rec domain.CaseRecord) bool {
		total++
		if rec.WasAutoApproved {
			approved++
		}
		return true
	})

	distinct := 0
	s.headerIndex.Range(func(_ string, _ []string) bool {
		distinct++
		return true
	})

	return domain.CaseStoreStats{
		TotalCases:             total,
		AutoApprovedCases:      approved,
		DistinctHeaderPatterns: distinct,
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
