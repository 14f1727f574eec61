package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

const createVolumeTable = `CREATE TABLE IF NOT EXISTS guild_volumes (
	guild_id TEXT PRIMARY KEY,
	base_percent INTEGER NOT NULL,
	multiplier_percent INTEGER NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SQLiteVolumeStore persists volumes in a SQLite database file.
type SQLiteVolumeStore struct {
	db *sql.DB
}

// NewSQLiteVolumeStore opens (and if needed creates) the database at path.
func NewSQLiteVolumeStore(ctx context.Context, path string) (*SQLiteVolumeStore, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(initCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}
	if _, err := db.ExecContext(initCtx, createVolumeTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create volume table: %w", err)
	}

	return &SQLiteVolumeStore{db: db}, nil
}

// Load returns the volume stored for the guild.
func (s *SQLiteVolumeStore) Load(ctx context.Context, guildID snowflake.ID) (domain.Volume, bool, error) {
	var base, multiplier int
	err := s.db.QueryRowContext(ctx,
		`SELECT base_percent, multiplier_percent FROM guild_volumes WHERE guild_id = ?`,
		guildID.String(),
	).Scan(&base, &multiplier)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Volume{}, false, nil
	}
	if err != nil {
		return domain.Volume{}, false, fmt.Errorf("failed to load volume: %w", err)
	}

	v, err := domain.NewVolume(base, multiplier)
	if err != nil {
		return domain.Volume{}, false, fmt.Errorf("stored volume for guild %s is invalid: %w", guildID, err)
	}
	return v, true, nil
}

// Save stores the volume for the guild.
func (s *SQLiteVolumeStore) Save(ctx context.Context, guildID snowflake.ID, volume domain.Volume) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guild_volumes (guild_id, base_percent, multiplier_percent, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			base_percent = excluded.base_percent,
			multiplier_percent = excluded.multiplier_percent,
			updated_at = excluded.updated_at`,
		guildID.String(),
		volume.BasePercent(),
		volume.MultiplierPercent(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save volume: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteVolumeStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteVolumeStore implements ports.VolumeStore.
var _ ports.VolumeStore = (*SQLiteVolumeStore)(nil)
