package repository

import "errors"

var (
	ErrNotFound         = errors.New("entity not found")
	ErrCorruptSnapshot  = errors.New("stored cart snapshot is corrupt")
	ErrConnectionFailed = errors.New("storage connection failed")
	ErrUpstream         = errors.New("upstream service error")
)
