package authorization

import "errors"

var (
	ErrInvalidActor  = errors.New("invalid_actor_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
