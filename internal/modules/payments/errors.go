package payments

import "errors"

var (
	ErrNotFound           = errors.New("payment not found")
	ErrCourseNotAvailable = errors.New("course not available")
)
