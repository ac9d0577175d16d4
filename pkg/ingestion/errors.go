package ingestion

import "errors"

// ErrInvalidPosition is returned when any game in a request contains a
// SAN move that doesn't legalize from the position it's played in. The
// entire request is rejected; nothing is persisted.
var ErrInvalidPosition = errors.New("ingestion: invalid position")
