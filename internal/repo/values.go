package repo

import (
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func nullUUID(id *uuid.UUID) any {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return *id
}

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func timePtr(n stdsql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// jsonb encodes v for a jsonb column. A nil value is stored as 'null'.
func jsonb(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode jsonb: %w", err)
	}
	return string(b), nil
}

func mustJSONB(v any) string {
	s, err := jsonb(v)
	if err != nil {
		panic(err)
	}
	return s
}

// fromJSONB decodes a jsonb column; empty and 'null' leave v untouched.
func fromJSONB(raw []byte, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode jsonb: %w", err)
	}
	return nil
}
