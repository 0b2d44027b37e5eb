package service

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyContent    = errors.New("no content to save")
	ErrDecodeFailure   = errors.New("file is not valid UTF-8")
	ErrPersistence     = errors.New("persistence store failure")
)
