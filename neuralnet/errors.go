package neuralnet

import "github.com/pkg/errors"

// Sentinel errors returned (wrapped) by the package. Use errors.Is or errors.Cause
// to match them.
var (
	ErrInvalidSize     = errors.New("invalid size")
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrStateMismatch   = errors.New("scratch state mismatch")
	ErrLabelOutOfRange = errors.New("label out of range")
	ErrEmptyBatch      = errors.New("empty batch")
	ErrUnknownKind     = errors.New("unknown kind")
	ErrInvalidParams   = errors.New("invalid hyperparameters")
)
