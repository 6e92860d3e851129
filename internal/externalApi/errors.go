package externalApi

import "errors"

var (
	ErrSendFailed    = errors.New("send failed")
	ErrEmptyResponse = errors.New("empty response")
)
