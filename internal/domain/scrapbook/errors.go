package scrapbook

import "errors"

var (
	ErrNotFound      = errors.New("scrapbook not found")
	ErrCodeCollision = errors.New("share code already taken")
	ErrTitleRequired = errors.New("title is required")
	ErrTitleTooLong  = errors.New("title exceeds 100 characters")
	ErrNoteTooLong   = errors.New("note exceeds 1000 characters")
	ErrSenderTooLong = errors.New("sender name exceeds 50 characters")
	ErrMusicTooLong  = errors.New("music id exceeds 100 characters")
	ErrNoPhotos      = errors.New("at least one photo is required")
)
