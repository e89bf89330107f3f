package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/logging"
	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/service/identity"
	"github.com/nahomt/bookbridge/internal/service/token"
)

// ErrVerification marks a rejected identity assertion, as opposed to a
// failure on our side of the exchange.
var ErrVerification = errors.New("identity verification failed")

// Verifier validates a third-party ID token; the concrete implementation
// lives in the identity package.
type Verifier interface {
	Verify(ctx context.Context, idToken, provider string) (*identity.Claims, error)
}

type Service struct {
	DB       *gorm.DB
	Verifier Verifier
	Tokens   *token.Signer
}

type SessionResult struct {
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Image   string    `json:"image"`
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Exchange trades a verified identity assertion for a session token, creating
// the user and account rows on first sign-in. Creation is idempotent by email
// uniqueness.
func (s *Service) Exchange(ctx context.Context, idToken, provider string) (*SessionResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.exchange", "provider", provider)

	claims, err := s.Verifier.Verify(ctx, idToken, provider)
	if err != nil {
		l.Warn("exchange_failed", "status", 401, "reason", "identity verification failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	var user models.User
	err = s.DB.WithContext(ctx).Where("email = ?", claims.Email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Name:  claims.Name,
			Email: claims.Email,
			Image: claims.Picture,
		}
		if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
			// Lost a concurrent first-sign-in race; the row exists now.
			if err2 := s.DB.WithContext(ctx).Where("email = ?", claims.Email).First(&user).Error; err2 != nil {
				l.Error("exchange_failed", "status", 500, "error", err)
				return nil, err
			}
		}
	case err != nil:
		l.Error("exchange_failed", "status", 500, "error", err)
		return nil, err
	}

	account := models.Account{
		UserID:            user.ID,
		Provider:          provider,
		ProviderAccountID: claims.Subject,
	}
	if err := s.DB.WithContext(ctx).
		Where("provider = ? AND provider_account_id = ?", provider, claims.Subject).
		FirstOrCreate(&account).Error; err != nil {
		l.Error("exchange_failed", "status", 500, "error", err)
		return nil, err
	}

	signed, exp, err := s.Tokens.Sign(user.ID, time.Now())
	if err != nil {
		l.Error("exchange_failed", "status", 500, "error", err)
		return nil, err
	}

	l.Info("exchange_success", "user_id", user.ID)
	return &SessionResult{
		Email:   user.Email,
		Name:    user.Name,
		Image:   user.Image,
		Token:   signed,
		Expires: exp,
	}, nil
}
