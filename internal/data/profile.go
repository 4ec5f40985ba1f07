package data

import (
	"context"
	"fmt"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
	"github.com/shannonbirch/shanbot/internal/biz/repo"
	"github.com/shannonbirch/shanbot/manychat"
)

// manychatProfiles adapts the ManyChat client to the profile-fetcher
// collaborator.
type manychatProfiles struct {
	client *manychat.Client
}

// NewManyChatProfiles creates a profile fetcher backed by the ManyChat API.
func NewManyChatProfiles(client *manychat.Client) repo.ProfileFetcher {
	return &manychatProfiles{client: client}
}

func (p *manychatProfiles) FetchProfile(ctx context.Context, subscriberID string) (*domain.Profile, error) {
	info, err := p.client.GetSubscriberInfo(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile for %s: %w", subscriberID, err)
	}
	return &domain.Profile{
		IGUsername: info.IGName,
		FirstName:  info.FirstName,
		LastName:   info.LastName,
	}, nil
}
