// Package sqlite implements the repository contracts on an embedded
// single-file database via the pure-Go modernc driver. It mirrors the
// postgres package exactly; callers cannot tell the backends apart.
//
// SQLite has no native uuid/date/timestamptz, so identifiers are TEXT
// uuids, calendar days are "2006-01-02" strings (lexicographic order is
// date order) and timestamps are RFC 3339 strings. All encoding goes
// through the helpers below so the two directions cannot drift.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

func encodeDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func decodeDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode date %q: %w", s, err)
	}
	return t, nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode time %q: %w", s, err)
	}
	return t, nil
}

func decodeUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decode uuid %q: %w", s, err)
	}
	return id, nil
}

// encodeUUIDPtr maps a nil pointer to SQL NULL.
func encodeUUIDPtr(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func decodeUUIDPtr(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := decodeUUID(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func encodeDatePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeDate(*t)
}

func decodeDatePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := decodeDate(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
