package store

// ValidationError reports a config write rejected before it was stored.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid config: " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }
