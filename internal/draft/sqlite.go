package draft

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hndao/inkpost/internal/db"
	"github.com/hndao/inkpost/internal/util/compression"
)

// SQLiteStore persists drafts in the local autosave database as compressed
// JSON blobs.
type SQLiteStore struct {
	db         db.DB
	compressor compression.Compressor
}

func NewSQLiteStore(database db.DB, compressor compression.Compressor) *SQLiteStore {
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}
	return &SQLiteStore{
		db:         database,
		compressor: compressor,
	}
}

func (s *SQLiteStore) Save(d *Draft) error {
	data, err := encode(d)
	if err != nil {
		return err
	}

	compressed, err := s.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("error compressing draft: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO drafts (id, post_id, title, content, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET post_id = excluded.post_id, title = excluded.title,
		 content = excluded.content, updated_at = excluded.updated_at`,
		d.ID, string(d.PostID), d.Title, compressed, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error saving draft: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(id string) (*Draft, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT content FROM drafts WHERE id = ?`, id).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("draft not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading draft: %w", err)
	}

	data, err := s.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing draft: %w", err)
	}
	return decode(data)
}

func (s *SQLiteStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM drafts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("error deleting draft: %w", err)
	}
	return nil
}
