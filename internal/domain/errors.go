package domain

import "errors"

var (
	// ErrNotFound is returned when no usable record exists for a slug or id
	ErrNotFound = errors.New("short url not found")

	// ErrExpired is returned when a record exists but its expiry has passed
	ErrExpired = errors.New("short url has expired")

	// ErrInvalidURL is returned for targets that are not absolute http(s) URLs
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidSlug is returned for custom slugs outside the allowed alphabet or length
	ErrInvalidSlug = errors.New("invalid slug")

	// ErrInvalidExpiry is returned for negative expiry durations
	ErrInvalidExpiry = errors.New("invalid expiry")

	// ErrSlugTaken is returned when a slug is already in use
	ErrSlugTaken = errors.New("slug already taken")

	// ErrSlugSpaceExhausted is returned when no free slug could be found
	ErrSlugSpaceExhausted = errors.New("could not allocate a free slug")
)
