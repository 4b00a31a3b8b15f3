package exec

import "errors"

// ErrUnsupportedJoinType aborts a join executor asked for anything outside
// INNER/LEFT.
var ErrUnsupportedJoinType = errors.New("exec: unsupported join type")
