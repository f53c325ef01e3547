package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidAddress = errors.New("invalid address format")
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrInvalidInput   = errors.New("invalid input")
	ErrCycleInFlight  = errors.New("poll cycle already in flight")
)
