package models

import "errors"

var (
	ErrInvalidBet    = errors.New("invalid bet")
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidSerial = errors.New("invalid serial number")
)
