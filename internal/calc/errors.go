package calc

type constError string

func (e constError) Error() string { return string(e) }

var (
	// ErrInvalidInput marks inputs rejected before calculation.
	ErrInvalidInput = constError("invalid calculation input")

	// ErrInvalidDifficulty marks an unknown difficulty label.
	ErrInvalidDifficulty = constError("invalid difficulty")
)
