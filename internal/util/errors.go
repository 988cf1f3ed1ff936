package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")
	ErrNoCredentials     = errors.New("no active corpus credentials")
	ErrNotFound          = errors.New("not found")
	ErrEmptyDocument     = errors.New("document text is empty")
	ErrAlreadyClaimed    = errors.New("queue item already claimed")

	ErrQuotaExhausted = errors.New("corpus quota exhausted")
	ErrRateLimited    = errors.New("corpus rate limited")
	ErrTransient      = errors.New("transient corpus error")
	ErrPermanent      = errors.New("permanent corpus error")
)
