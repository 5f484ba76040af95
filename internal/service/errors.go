package service

import "errors"

var (
	ErrInvalidAmount  = errors.New("service: invalid amount")
	ErrInvalidAddress = errors.New("service: invalid address")
	ErrUnknownSender  = errors.New("service: sender key is not held locally")
	ErrBuildTimeout   = errors.New("service: transfer inputs did not become ready in time")
	ErrNotActive      = errors.New("service: transfer is no longer being watched")
	ErrClosed         = errors.New("service: closed")
)
