package app

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrCapacityExceeded = errors.New("not enough free squares")
	ErrNotAdmin         = errors.New("actor is not pool admin")
	ErrWrongMode        = errors.New("operation not allowed in this assignment mode")
	ErrPoolNotFound     = errors.New("pool not found")
	ErrForbidden        = errors.New("pool is private")
	ErrConflict         = errors.New("pool was modified concurrently, try again")
	ErrInvitesDisabled  = errors.New("invites are not configured")
	ErrInvalidInvite    = errors.New("invalid or expired invite")
)
