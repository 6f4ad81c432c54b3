package models

import "errors"

var (
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrInvalidPrice     = errors.New("invalid price (non-finite)")
	ErrInvalidTimestamp = errors.New("invalid timestamp (not strictly ascending)")
	ErrInvalidCandle    = errors.New("invalid candle (open/close outside high/low)")
	ErrInvalidVolume    = errors.New("invalid volume")
	ErrInvalidPeriod    = errors.New("invalid time period")
)
