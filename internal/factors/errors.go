package factors

type constError string

func (e constError) Error() string { return string(e) }

var (
	// ErrInvalidProfile is returned when an industry profile fails validation.
	ErrInvalidProfile = constError("invalid industry profile")

	// ErrInvalidIncentive is returned when an incentive has an unknown type
	// or neither a value nor a percentage.
	ErrInvalidIncentive = constError("invalid incentive")

	// ErrInvalidFactors is returned when a factors file cannot be applied.
	ErrInvalidFactors = constError("invalid factors file")
)
