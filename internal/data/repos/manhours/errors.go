package manhours

import "errors"

// ErrMultipleActive means storage holds more than one active budget for a
// project. The unique index makes this unreachable unless it was dropped.
var ErrMultipleActive = errors.New("more than one active manhour budget for project")
