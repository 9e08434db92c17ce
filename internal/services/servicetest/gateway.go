// Package servicetest provides testify mocks for the provider gateway.
package servicetest

import (
	"context"
	"sync"
	. "votuna/internal/models"
	"votuna/internal/services"
	"votuna/internal/types"

	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

var _ services.ProviderGateway = (*MockGateway)(nil)

func (m *MockGateway) Provider() string {
	return ProviderSoundCloud
}

func (m *MockGateway) GetPlaylist(ctx context.Context, playlistID string) (*types.ProviderPlaylist, error) {
	args := m.Called(ctx, playlistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ProviderPlaylist), args.Error(1)
}

func (m *MockGateway) ListTracks(ctx context.Context, playlistID string) ([]types.ProviderTrack, error) {
	args := m.Called(ctx, playlistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ProviderTrack), args.Error(1)
}

func (m *MockGateway) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	args := m.Called(ctx, playlistID, trackIDs)
	return args.Error(0)
}

func (m *MockGateway) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	args := m.Called(ctx, playlistID, trackIDs)
	return args.Error(0)
}

func (m *MockGateway) TrackExists(ctx context.Context, playlistID string, trackID string) (bool, error) {
	args := m.Called(ctx, playlistID, trackID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) SearchTracks(ctx context.Context, query string, limit int) ([]types.ProviderTrack, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ProviderTrack), args.Error(1)
}

func (m *MockGateway) ResolveTrackURL(ctx context.Context, trackURL string) (*types.ProviderTrack, error) {
	args := m.Called(ctx, trackURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ProviderTrack), args.Error(1)
}

func (m *MockGateway) RelatedTracks(ctx context.Context, trackID string, limit, offset int) ([]types.ProviderTrack, error) {
	args := m.Called(ctx, trackID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ProviderTrack), args.Error(1)
}

// Factory hands out the same gateway for every user and records who asked.
type Factory struct {
	Gateway *MockGateway
	Err     error

	mu    sync.Mutex
	users []*User
}

var _ services.ProviderFactory = (*Factory)(nil)

func NewFactory() *Factory {
	return &Factory{Gateway: &MockGateway{}}
}

func (f *Factory) ForUser(_ string, user *User) (services.ProviderGateway, error) {
	f.mu.Lock()
	f.users = append(f.users, user)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	return f.Gateway, nil
}

// Users lists the users gateways were built for, in call order.
func (f *Factory) Users() []*User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*User(nil), f.users...)
}
