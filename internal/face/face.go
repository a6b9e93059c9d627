package face

import (
	"context"
)

type Pair string

const (
	PairSelfiePrimary    Pair = "selfie_primary"
	PairSelfieSecondary  Pair = "selfie_secondary"
	PairPrimarySecondary Pair = "primary_secondary"
)

// Result is the outcome of comparing exactly two images for facial
// similarity. Every requested pair produces exactly one Result, even when
// the comparator could not answer; Note carries the reason in that case.
type Result struct {
	Pair       Pair    `json:"pair"`
	Similarity float64 `json:"similarity"`
	Passed     bool    `json:"passed"`
	Note       string  `json:"note,omitempty"`
}

// Comparer answers the biometric question for one pair of images. It returns
// the best match similarity in [0,100], with 0 meaning no face pair cleared
// the threshold. Failures are classified through the fault package.
type Comparer interface {
	Compare(ctx context.Context, source, target []byte, threshold float64) (float64, error)
}
