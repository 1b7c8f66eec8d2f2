package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/quillback/fingerid/internal/device"
	"github.com/quillback/fingerid/internal/fingerid/types"
)

// AcceptanceThreshold is a fixed design constant, roughly the midpoint of
// the device's 0-199 matching scale. It is not derived from error-rate
// calibration; do not tune it without new evidence.
const AcceptanceThreshold = 100

// Comparer is the slice of the device client the match engine needs.
type Comparer interface {
	Compare(ctx context.Context, probe, candidate string) (int, error)
}

// Identify runs the 1:N scan: one pairwise comparison per gallery record,
// issued sequentially in gallery order (the device service is stateful and
// single-threaded). A device-reported comparison failure contributes score 0
// and the scan continues; a transport failure aborts the whole scan, since a
// partial-gallery result could produce a false negative.
//
// The running max is strict — the first record to reach the best score wins
// ties, later equal scores never replace it.
func Identify(ctx context.Context, dev Comparer, probe string, gallery []types.Identity) (types.MatchOutcome, error) {
	if len(gallery) == 0 {
		// Callers guard this upstream to avoid wasting a capture; hitting it
		// here is a contract violation, not a no-match.
		return types.MatchOutcome{}, ErrEmptyGallery
	}

	bestScore := -1
	bestIdx := -1
	for i := range gallery {
		score, err := dev.Compare(ctx, probe, gallery[i].Template)
		if err != nil {
			var devErr *device.DeviceError
			if errors.As(err, &devErr) {
				score = 0
			} else {
				return types.MatchOutcome{}, fmt.Errorf("comparison %d of %d: %w", i+1, len(gallery), err)
			}
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	outcome := types.MatchOutcome{
		Score:    bestScore,
		Accepted: bestScore > AcceptanceThreshold,
	}
	if outcome.Accepted {
		matched := gallery[bestIdx]
		outcome.Matched = &matched
	}
	return outcome, nil
}
