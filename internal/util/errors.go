package util

import "errors"

var (
	ErrCourseNotFound    = errors.New("course not found")
	ErrThresholdNotFound = errors.New("threshold not found")
	ErrInvalidNodeType   = errors.New("node type must be module or exercise")
)
