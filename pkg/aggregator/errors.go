package aggregator

import "errors"

// ErrIncompleteAnalysis means a ply in a game that should be fully
// analyzed is Skipped, Empty, or still nil. Per §6.2, submission to the
// downstream receiver must be refused rather than ship a partial score
// list.
var ErrIncompleteAnalysis = errors.New("aggregator: incomplete analysis")
