package repository

import "errors"

// ErrCounterUnderflow means a guarded decrement found fewer units than it was asked to
// remove. It points at a bookkeeping bug, never at user input.
var ErrCounterUnderflow = errors.New("counter underflow")
