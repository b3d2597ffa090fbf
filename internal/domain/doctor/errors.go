package doctor

import "errors"

var (
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrNotBookable    = errors.New("time is not a bookable slot for this doctor")
)
