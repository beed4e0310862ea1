package acinfinity

import "errors"

var (
	// ErrInvalidArgument is returned for caller input that can never succeed,
	// such as a fan level outside 0-10 or an unknown sensor field.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMalformedPayload is returned when a frame does not match the layout
	// expected for the command it answers.
	ErrMalformedPayload = errors.New("malformed payload")
)
