package device

import "errors"

var (
	// ErrOutOfRange is returned for a block number past the end of a device.
	ErrOutOfRange = errors.New("device: block out of range")
	// ErrBlockSize is returned when the transfer buffer is not one block long.
	ErrBlockSize = errors.New("device: buffer is not one block")
	// ErrNoDevice is returned by Table for a device number with nothing mounted.
	ErrNoDevice = errors.New("device: no such device")
	// ErrMounted is returned by Table.Mount when the number is already in use.
	ErrMounted = errors.New("device: already mounted")
	// ErrInjected is the default error returned by Faulty.
	ErrInjected = errors.New("device: injected fault")
)
