package models

// HTTP request models for the ops API. Bound from query params, defaulted
// via creasty/defaults and validated via go-playground/validator.

// CandlesRequest queries stored candles for one asset and timeframe.
type CandlesRequest struct {
	Asset     string `query:"asset" validate:"required"`
	Timeframe int    `query:"tf" default:"60" validate:"gt=0"`
	Limit     int    `query:"limit" default:"100" validate:"min=1,max=1000"`
	From      string `query:"from"`
	To        string `query:"to"`
}

// RecentSignalsRequest limits how many of the latest signals are returned.
type RecentSignalsRequest struct {
	Limit int `query:"limit" default:"20" validate:"min=1,max=200"`
}
