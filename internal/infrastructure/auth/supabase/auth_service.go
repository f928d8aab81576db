package supabase

import (
	"context"
	"fmt"

	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/google/uuid"
	supabase "github.com/nedpals/supabase-go"
)

// AuthService validates access tokens against the Supabase auth API
type AuthService struct {
	client *supabase.Client
}

type Config struct {
	URL    string
	APIKey string
}

func NewAuthService(config Config) (*AuthService, error) {
	client := supabase.CreateClient(config.URL, config.APIKey)
	if client == nil {
		return nil, fmt.Errorf("failed to create Supabase client")
	}

	return &AuthService{
		client: client,
	}, nil
}

// VerifyToken resolves the user behind an access token with a round trip to Supabase
func (s *AuthService) VerifyToken(ctx context.Context, accessToken string) (*services.Identity, error) {
	user, err := s.client.Auth.User(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	return convertUser(user)
}

func convertUser(user *supabase.User) (*services.Identity, error) {
	if user == nil {
		return nil, fmt.Errorf("no user for token")
	}

	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", user.ID, err)
	}

	return &services.Identity{
		UserID: userID,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}
