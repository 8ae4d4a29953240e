package ports

import "context"

// ProfilePort records the squares profile of a user at most once.
type ProfilePort interface {
	// CreateProfileOnce stores the initial profile for userID.
	// Returns created=false when the user already has one.
	CreateProfileOnce(ctx context.Context, userID, displayName string) (bool, error)
}
