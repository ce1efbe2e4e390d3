package domain

import "errors"

// Pipeline errors.
var (
	ErrUpstreamUnavailable = errors.New("air quality provider unavailable")
	ErrEmptyResult         = errors.New("no stations found inside bounding box")
	ErrInvalidBoundingBox  = errors.New("invalid bounding box")
	ErrRemoteSchema        = errors.New("enrichment response does not match alert schema")
)
