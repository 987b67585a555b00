package models

// GameMetadata is optional provenance attached to a learned pattern.
type GameMetadata struct {
	Event string `json:"event,omitempty"`
	White string `json:"white,omitempty"`
	Black string `json:"black,omitempty"`
	Date  string `json:"date,omitempty"`
}

// PatternRecord is one labeled signature with its known outcome. Created
// when a completed game is learned; never mutated afterwards.
type PatternRecord struct {
	ID              string          `json:"id"`
	Fingerprint     string          `json:"fingerprint"`
	Archetype       Archetype       `json:"archetype"`
	Outcome         Outcome         `json:"outcome"`
	TotalMoves      int             `json:"total_moves"`
	Characteristics Characteristics `json:"characteristics"`
	Metadata        GameMetadata    `json:"metadata,omitempty"`
}

// PatternMatch is one retrieval hit from the pattern database, ordered by
// similarity descending.
type PatternMatch struct {
	Record           *PatternRecord `json:"record"`
	Similarity       float64        `json:"similarity"`
	MatchingFactors  []string       `json:"matching_factors"`
	PredictedOutcome Outcome        `json:"predicted_outcome"`
	Confidence       float64        `json:"confidence"`
}
