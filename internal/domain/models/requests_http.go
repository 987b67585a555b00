package models

// Requests for prediction HTTP endpoints. Defined in domain for consistency and reuse.

type PredictRequest struct {
	PGN            string   `json:"pgn"`
	Moves          []string `json:"moves"`
	TruncationMove int      `json:"truncation_move" default:"20" validate:"gte=1,lte=200"`
	SearchDepth    int      `json:"search_depth" default:"12" validate:"gte=1,lte=40"`
}

type BenchmarkRequest struct {
	SampleCount    int  `json:"sample_count" default:"50" validate:"gte=1,lte=2000"`
	TruncationMove int  `json:"truncation_move" default:"20" validate:"gte=1,lte=200"`
	SearchDepth    int  `json:"search_depth" default:"12" validate:"gte=1,lte=40"`
	Async          bool `json:"async"`
}

type SimilarPatternsRequest struct {
	PGN            string   `query:"pgn" json:"pgn"`
	Moves          []string `json:"moves"`
	TruncationMove int      `query:"truncation_move" json:"truncation_move" default:"20" validate:"gte=1,lte=200"`
	Limit          int      `query:"limit" json:"limit" default:"5" validate:"gte=1,lte=50"`
}
