package supergrab

import "errors"

var (
	ErrInvalidConfig = errors.New("supergrab: invalid config")
	ErrInvalidInput  = errors.New("supergrab: invalid input record")
)
