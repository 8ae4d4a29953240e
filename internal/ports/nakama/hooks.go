package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"squarespool/internal/app/onboarding"

	"github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// AfterAuthenticateDevice onboards accounts created through device auth.
func AfterAuthenticateDevice(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
	if !out.GetCreated() {
		return nil
	}
	return onboardFromSession(ctx, logger, nk, "AfterAuthenticateDevice", out)
}

// AfterAuthenticateEmail onboards accounts created through email auth.
func AfterAuthenticateEmail(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateEmailRequest) error {
	if !out.GetCreated() {
		return nil
	}
	return onboardFromSession(ctx, logger, nk, "AfterAuthenticateEmail", out)
}

func onboardFromSession(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, hook string, out *api.Session) error {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		// After-auth hooks run before the session is bound to the context.
		resolvedID, err := extractUserIDFromToken(out.GetToken())
		if err != nil {
			logger.Error("%s: Failed to extract user ID from token: %v", hook, err)
			return err
		}
		userID = resolvedID
	}

	logger.Info("Onboarding new user %s", userID)

	service := onboarding.NewService(NewNakamaAccountAdapter(nk), NewNakamaProfileAdapter(nk), nil)
	result, err := service.OnboardNewUser(ctx, userID)
	if err != nil {
		logger.Error("%s: Onboarding failed for user %s: %v", hook, userID, err)
		return err
	}
	if result.ProfileUpdateErr != nil {
		logger.Warn("%s: Failed to update profile for user %s: %v", hook, userID, result.ProfileUpdateErr)
	}
	if result.AlreadyOnboarded {
		logger.Info("%s: User %s already onboarded", hook, userID)
	}
	return nil
}

// extractUserIDFromToken reads the uid claim of a Nakama session token. The
// signature is not checked; the token comes straight from the auth response.
func extractUserIDFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", fmt.Errorf("token claims missing uid")
	}
	return uid, nil
}
