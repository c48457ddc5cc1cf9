package service

import (
	"errors"
)

var (
	ErrNameRequired       = errors.New("process name is required")
	ErrProcessNotFound    = errors.New("process not found")
	ErrInvalidStream      = errors.New("invalid log stream")
	ErrLogPathUnavailable = errors.New("log path unavailable")
	ErrLogRead            = errors.New("log read failed")
	ErrLogWrite           = errors.New("log write failed")
)
