package scoring

import (
	"math"
	"math/rand"
	"sync"
)

const (
	baseScore = 85.0
	minScore  = 75
	maxScore  = 100

	sizeBonusLower = 100 * 1024
	sizeBonusUpper = 5 * 1024 * 1024
)

// recordTypeBonus weights document categories by how much corroborating
// structure they carry.
var recordTypeBonus = map[string]float64{
	"lab_report":         5,
	"prescription":       3,
	"medical_imaging":    4,
	"consultation_notes": 2,
	"discharge_summary":  5,
	"vaccination_record": 4,
}

// Scorer computes intake confidence scores. The random source is injected so
// the jitter can be fixed in tests; rand.Rand is not safe for concurrent use,
// so draws go through the mutex.
type Scorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewScorer(rng *rand.Rand) *Scorer {
	return &Scorer{rng: rng}
}

// Score returns a confidence score in [75,100] for a document issued by a
// provider with the given trust score. The jitter term makes repeated calls
// non-deterministic within a ±3 band.
func (s *Scorer) Score(providerTrust int, recordType string, fileSizeBytes int64) int {
	score := baseScore
	score += float64(providerTrust-90) * 0.5
	score += recordTypeBonus[recordType]
	if fileSizeBytes >= sizeBonusLower && fileSizeBytes < sizeBonusUpper {
		score += 3
	}
	s.mu.Lock()
	jitter := s.rng.Float64()*6 - 3
	s.mu.Unlock()
	score += jitter

	rounded := int(math.Round(score))
	if rounded < minScore {
		return minScore
	}
	if rounded > maxScore {
		return maxScore
	}
	return rounded
}

// StatusFor maps a score to its intake status. The flagged branch is
// unreachable for intake scores, which are clamped to [75,100]; verify-time
// scores share this mapping and do go below the pending threshold.
func StatusFor(score int) string {
	switch {
	case score >= 90:
		return "verified"
	case score >= minScore:
		return "pending"
	default:
		return "flagged"
	}
}
