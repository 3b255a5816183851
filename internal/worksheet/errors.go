package worksheet

import "errors"

var (
	ErrNotFound       = errors.New("record not found")
	ErrGroupNotFound  = errors.New("shipping group not found")
	ErrStaleRecompute = errors.New("recompute superseded by a newer pass")
)
