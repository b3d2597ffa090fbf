package feedback

import "errors"

var (
	ErrFeedbackNotFound = errors.New("feedback not found")
	ErrFeedbackExists   = errors.New("feedback already submitted for this appointment")
	ErrNotCompleted     = errors.New("can only rate completed appointments")
)
