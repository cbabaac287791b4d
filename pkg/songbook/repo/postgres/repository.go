package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/songbook/pkg/songbook"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores songs in a single songs table.
type Repository struct {
	db DBTX
}

// New returns a repository running its statements on db
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool returns a repository backed by pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return New(pool)
}

const schema = `
CREATE TABLE IF NOT EXISTS songs (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	lyrics             TEXT NOT NULL DEFAULT '',
	audio_key          TEXT NOT NULL DEFAULT '',
	video_key          TEXT NOT NULL DEFAULT '',
	image_key          TEXT NOT NULL DEFAULT '',
	metadata_image_key TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
)`

// Migrate creates the songs table if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return wrapPgError("migrate", err)
	}
	return nil
}

// SQLSTATE codes mapped onto songbook errors
const (
	uniqueViolation  = "23505"
	notNullViolation = "23502"
	undefinedTable   = "42P01"
)

func wrapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("postgres %s: %w", op, err)
	}
	switch pgErr.Code {
	case uniqueViolation:
		return songbook.ErrSongExists
	case notNullViolation:
		return fmt.Errorf("%w: %s must not be null", songbook.ErrValidation, pgErr.ColumnName)
	case undefinedTable:
		return fmt.Errorf("postgres %s: songs table missing, run Migrate: %w", op, err)
	}
	return fmt.Errorf("postgres %s: %w", op, err)
}

const songColumns = `id, title, lyrics, audio_key, video_key, image_key, metadata_image_key, created_at, updated_at`

func scanSong(row pgx.Row) (*songbook.Song, error) {
	var s songbook.Song
	err := row.Scan(&s.ID, &s.Title, &s.Lyrics, &s.AudioKey, &s.VideoKey,
		&s.ImageKey, &s.MetadataImageKey, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func (r *Repository) ListSongs(ctx context.Context) ([]*songbook.Song, error) {
	rows, err := r.db.Query(ctx, `SELECT `+songColumns+` FROM songs`)
	if err != nil {
		return nil, wrapPgError("list songs", err)
	}
	defer rows.Close()

	var songs []*songbook.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, wrapPgError("scan song", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("list songs", err)
	}

	return songs, nil
}

func (r *Repository) GetSong(ctx context.Context, id string) (*songbook.Song, error) {
	song, err := scanSong(r.db.QueryRow(ctx, `SELECT `+songColumns+` FROM songs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPgError("get song", err)
	}
	return song, nil
}

func (r *Repository) CreateSong(ctx context.Context, song *songbook.Song) error {
	query := `
		INSERT INTO songs (` + songColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		song.ID, song.Title, song.Lyrics, song.AudioKey, song.VideoKey,
		song.ImageKey, song.MetadataImageKey, song.CreatedAt, song.UpdatedAt)
	if err != nil {
		return wrapPgError("create song", err)
	}
	return nil
}

// UpdateSong sets only the provided columns. A NULL parameter keeps the stored value.
func (r *Repository) UpdateSong(ctx context.Context, id string, patch songbook.SongPatch) (*songbook.Song, error) {
	query := `
		UPDATE songs SET
			title              = COALESCE($2::text, title),
			lyrics             = COALESCE($3::text, lyrics),
			audio_key          = COALESCE($4::text, audio_key),
			video_key          = COALESCE($5::text, video_key),
			image_key          = COALESCE($6::text, image_key),
			metadata_image_key = COALESCE($7::text, metadata_image_key),
			updated_at         = $8
		WHERE id = $1
		RETURNING ` + songColumns

	song, err := scanSong(r.db.QueryRow(ctx, query, id,
		patch.Title, patch.Lyrics, patch.AudioKey, patch.VideoKey,
		patch.ImageKey, patch.MetadataImageKey, patch.UpdatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, songbook.ErrSongNotFound
	}
	if err != nil {
		return nil, wrapPgError("update song", err)
	}
	return song, nil
}

func (r *Repository) DeleteSong(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM songs WHERE id = $1`, id); err != nil {
		return wrapPgError("delete song", err)
	}
	return nil
}
