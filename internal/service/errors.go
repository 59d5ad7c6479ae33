package service

import "errors"

var (
	ErrUnknownAction   = errors.New("unknown action")
	ErrStorageDisabled = errors.New("event archive is not configured")
	ErrHistoryDisabled = errors.New("telemetry history is not configured")
	ErrPushDisabled    = errors.New("push notifications are not configured")
	ErrInvalidFilter   = errors.New("invalid filter")

	ErrInvalidSubscription = errors.New("invalid push subscription")
)
