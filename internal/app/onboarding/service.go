package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"squarespool/internal/ports"
)

// Result captures non-fatal onboarding outcomes.
type Result struct {
	// DisplayName is the generated name, empty when the user was already onboarded.
	DisplayName string
	// AlreadyOnboarded is set when a profile existed before this call.
	AlreadyOnboarded bool
	// ProfileUpdateErr is set when the account rename failed but onboarding continued.
	ProfileUpdateErr error
}

// Service handles post-auth onboarding for new users.
type Service struct {
	accounts ports.AccountPort
	profiles ports.ProfilePort
	rng      *rand.Rand
}

// NewService constructs an onboarding service with required ports.
// accounts/profiles must be non-nil; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, profiles ports.ProfilePort, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		profiles: profiles,
		rng:      rng,
	}
}

// OnboardNewUser records a profile for a newly created account and gives it a
// friendly display name, so hosts see something better than a device id.
// Returns an error only if the profile cannot be stored.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil || s.profiles == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}

	displayName := s.generateFriendlyName()
	created, err := s.profiles.CreateProfileOnce(ctx, userID, displayName)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create profile: %w", err)
	}
	if !created {
		return Result{AlreadyOnboarded: true}, nil
	}

	result := Result{DisplayName: displayName}
	if err := s.accounts.UpdateProfile(ctx, userID, "", displayName); err != nil {
		// Renaming is best-effort; the profile record is what matters.
		result.ProfileUpdateErr = err
	}
	return result, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Lucky", "Bold", "Clutch", "Swift", "Steady", "Mighty", "Sharp", "Wild", "Cool", "Quick"}
	nouns := []string{"Kicker", "Rusher", "Safety", "Tackle", "Blitz", "Huddle", "Punter", "Receiver", "Center", "Coach"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
