package patterns

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"ChessFlow/internal/domain/models"
)

// Candidates below this similarity are never returned.
const minSimilarity = 30.0

// Cross-archetype candidates are admitted at reduced weight.
const (
	adjacentSimilarityFactor = 0.8
	adjacentConfidenceFactor = 0.7
)

// Database is the append-only in-memory pattern store. Records are
// indexed by id and by archetype and never mutated after insertion, so a
// single writer with concurrent readers is sufficient.
type Database struct {
	mu          sync.RWMutex
	byID        map[string]*models.PatternRecord
	byArchetype map[models.Archetype][]*models.PatternRecord
}

// NewDatabase creates an empty pattern database.
func NewDatabase() *Database {
	return &Database{
		byID:        make(map[string]*models.PatternRecord),
		byArchetype: make(map[models.Archetype][]*models.PatternRecord),
	}
}

// AddPattern stores a labeled signature under a fresh id. It always
// succeeds.
func (d *Database) AddPattern(sig *models.Signature, outcome models.Outcome, meta models.GameMetadata) *models.PatternRecord {
	rec := &models.PatternRecord{
		ID:              uuid.NewString(),
		Fingerprint:     sig.Fingerprint,
		Archetype:       sig.Archetype,
		Outcome:         outcome,
		TotalMoves:      sig.TotalMoves,
		Characteristics: sig.Reduce(),
		Metadata:        meta,
	}

	d.mu.Lock()
	d.byID[rec.ID] = rec
	d.byArchetype[rec.Archetype] = append(d.byArchetype[rec.Archetype], rec)
	d.mu.Unlock()

	return rec
}

// Get returns a record by id.
func (d *Database) Get(id string) (*models.PatternRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.byID[id]
	return rec, ok
}

// Size returns the number of stored records.
func (d *Database) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

// Clear drops all records.
func (d *Database) Clear() {
	d.mu.Lock()
	d.byID = make(map[string]*models.PatternRecord)
	d.byArchetype = make(map[models.Archetype][]*models.PatternRecord)
	d.mu.Unlock()
}

// FindSimilar retrieves the closest stored patterns for a signature.
// Same-archetype records score at full weight; records from adjacent
// archetypes are admitted at reduced similarity and confidence to widen
// recall. Candidates under the similarity floor are discarded and the
// remainder returned best-first, at most limit entries.
func (d *Database) FindSimilar(sig *models.Signature, limit int) []models.PatternMatch {
	if limit <= 0 {
		return nil
	}
	ref := sig.Reduce()

	d.mu.RLock()
	var matches []models.PatternMatch
	for _, rec := range d.byArchetype[sig.Archetype] {
		if m, ok := score(ref, rec, 1, 1); ok {
			matches = append(matches, m)
		}
	}
	for _, adj := range AdjacentArchetypes(sig.Archetype) {
		for _, rec := range d.byArchetype[adj] {
			if m, ok := score(ref, rec, adjacentSimilarityFactor, adjacentConfidenceFactor); ok {
				matches = append(matches, m)
			}
		}
	}
	d.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func score(ref models.Characteristics, rec *models.PatternRecord, simFactor, confFactor float64) (models.PatternMatch, bool) {
	sim, factors := Similarity(ref, rec.Characteristics)
	sim *= simFactor
	if sim < minSimilarity {
		return models.PatternMatch{}, false
	}
	return models.PatternMatch{
		Record:           rec,
		Similarity:       sim,
		MatchingFactors:  factors,
		PredictedOutcome: rec.Outcome,
		Confidence:       sim * confFactor,
	}, true
}
