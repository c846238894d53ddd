package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/hbscontent"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ hbscontent.EntryService = (*EntryService)(nil)

// EntryService implements hbscontent.EntryService using SQLite.
type EntryService struct {
	db *DB
}

// NewEntryService creates a new EntryService.
func NewEntryService(db *DB) *EntryService {
	return &EntryService{db: db}
}

const entryColumns = "id, path, title, body, raw_template, content_hash, indexed_at"

// UpsertEntry creates the entry, or replaces the entry with the same path.
// The ID of an existing entry is kept.
func (s *EntryService) UpsertEntry(ctx context.Context, entry *hbscontent.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.IndexedAt.IsZero() {
		entry.IndexedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, "SELECT id FROM entries WHERE path = ?", entry.Path).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
	case err != nil:
		return err
	}

	c := entry.Contents
	var title any
	if c.Title != nil {
		title = *c.Title
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (id, path, title, body, raw_template, content_hash, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			raw_template = excluded.raw_template,
			content_hash = excluded.content_hash,
			indexed_at = excluded.indexed_at
	`, id, entry.Path, title, c.Body, c.RawTemplate, entry.ContentHash,
		entry.IndexedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM keywords WHERE entry_id = ?", id); err != nil {
		return err
	}
	for i, keyword := range c.Keywords {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO keywords (entry_id, position, keyword) VALUES (?, ?, ?)",
			id, i, keyword); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	entry.ID = id
	return nil
}

// FindEntryByPath retrieves the entry for a template path.
func (s *EntryService) FindEntryByPath(ctx context.Context, path string) (*hbscontent.Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE path = ?", path)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hbscontent.Errorf(hbscontent.ENOTFOUND, "entry not found")
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachKeywords(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// FindEntries retrieves entries matching the filter, ordered by path.
func (s *EntryService) FindEntries(ctx context.Context, filter hbscontent.EntryFilter) ([]*hbscontent.Entry, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + entryColumns + " FROM entries WHERE 1=1")

	if filter.Path != nil {
		query.WriteString(" AND path = ?")
		args = append(args, *filter.Path)
	}
	if filter.Keyword != nil {
		query.WriteString(" AND id IN (SELECT entry_id FROM keywords WHERE keyword = ?)")
		args = append(args, *filter.Keyword)
	}
	if filter.Query != nil {
		query.WriteString(` AND (title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`)
		pattern := likePattern(*filter.Query)
		args = append(args, pattern, pattern)
	}

	query.WriteString(" ORDER BY path ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}

	var entries []*hbscontent.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// The connection is released before keywords are loaded.
	rows.Close()

	for _, entry := range entries {
		if err := s.attachKeywords(ctx, entry); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// DeleteEntry removes the entry for a template path together with its keywords.
func (s *EntryService) DeleteEntry(ctx context.Context, path string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE path = ?", path)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hbscontent.Errorf(hbscontent.ENOTFOUND, "entry not found")
	}
	return nil
}

func (s *EntryService) attachKeywords(ctx context.Context, entry *hbscontent.Entry) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT keyword FROM keywords WHERE entry_id = ? ORDER BY position ASC", entry.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	keywords := []string{}
	for rows.Next() {
		var keyword string
		if err := rows.Scan(&keyword); err != nil {
			return err
		}
		keywords = append(keywords, keyword)
	}
	entry.Contents.Keywords = keywords
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*hbscontent.Entry, error) {
	var entry hbscontent.Entry
	var contents hbscontent.Contents
	var title sql.NullString
	var indexedAt string

	if err := row.Scan(&entry.ID, &entry.Path, &title, &contents.Body, &contents.RawTemplate,
		&entry.ContentHash, &indexedAt); err != nil {
		return nil, err
	}

	if title.Valid {
		contents.Title = &title.String
	}
	contents.Keywords = []string{}
	entry.Contents = &contents

	var err error
	entry.IndexedAt, err = parseRFC3339(indexedAt, "indexed_at")
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
