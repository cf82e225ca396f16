package domain

import "errors"

var (
	// ErrNotTracking is returned when a sample or command targets a
	// subject whose tracking has not been started.
	ErrNotTracking = errors.New("subject is not being tracked")

	// ErrPermissionDenied means the location source refused the watch
	// subscription; tracking cannot start and the error is not retried.
	ErrPermissionDenied = errors.New("location source permission denied")

	// ErrSubjectUnknown is returned for status queries on subjects the
	// pipeline has never seen.
	ErrSubjectUnknown = errors.New("unknown subject")
)
