package infrastructure

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

// MemoryVolumeStore keeps volumes for the lifetime of the process.
type MemoryVolumeStore struct {
	mu      sync.RWMutex
	volumes map[snowflake.ID]domain.Volume
}

// NewMemoryVolumeStore creates a new MemoryVolumeStore.
func NewMemoryVolumeStore() *MemoryVolumeStore {
	return &MemoryVolumeStore{
		volumes: make(map[snowflake.ID]domain.Volume),
	}
}

// Load returns the volume stored for the guild.
func (s *MemoryVolumeStore) Load(_ context.Context, guildID snowflake.ID) (domain.Volume, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.volumes[guildID]
	return v, ok, nil
}

// Save stores the volume for the guild.
func (s *MemoryVolumeStore) Save(_ context.Context, guildID snowflake.ID, volume domain.Volume) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volumes[guildID] = volume
	return nil
}

// Count returns the number of stored volumes (for testing/monitoring).
func (s *MemoryVolumeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.volumes)
}

// Close is a no-op.
func (s *MemoryVolumeStore) Close() error {
	return nil
}

// Ensure MemoryVolumeStore implements ports.VolumeStore.
var _ ports.VolumeStore = (*MemoryVolumeStore)(nil)
