package tempo

import "errors"

var (
	// ErrInsufficientData means no peak was found at any threshold down to the floor.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNoViableTempo means peaks were found but every interval between them was zero.
	ErrNoViableTempo = errors.New("no viable tempo")
	// ErrInvalidSampleRate means the sample rate was not positive.
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	// ErrInvalidParams means the estimator parameters cannot be used.
	ErrInvalidParams = errors.New("invalid tempo parameters")
)

// IsTempoError reports whether err is one of the recoverable estimation outcomes,
// which callers should present as "BPM unknown".
func IsTempoError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrNoViableTempo) ||
		errors.Is(err, ErrInvalidSampleRate)
}
