package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"squarespool/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	profileCollection = "squares_profile"
	profileKey        = "profile_v1"
)

// NakamaProfileAdapter stores onboarding profiles as user-owned storage objects.
type NakamaProfileAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaProfileAdapter creates a new profile adapter.
func NewNakamaProfileAdapter(nk runtime.NakamaModule) *NakamaProfileAdapter {
	return &NakamaProfileAdapter{nk: nk}
}

// CreateProfileOnce writes the profile with a create-only version so a second
// onboarding for the same user is rejected by storage.
func (a *NakamaProfileAdapter) CreateProfileOnce(ctx context.Context, userID, displayName string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("userID is required")
	}

	profile := map[string]interface{}{
		"display_name": displayName,
		"created_at":   time.Now().UTC().Format(time.RFC3339),
	}
	value, err := json.Marshal(profile)
	if err != nil {
		return false, fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      profileCollection,
			Key:             profileKey,
			UserID:          userID,
			Value:           string(value),
			Version:         "*",
			PermissionRead:  runtime.STORAGE_PERMISSION_OWNER_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create profile: %w", err)
	}

	return true, nil
}

var _ ports.ProfilePort = (*NakamaProfileAdapter)(nil)
