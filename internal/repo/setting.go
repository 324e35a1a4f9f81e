package repo

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
)

// SettingKind names one of the singleton content pages.
type SettingKind string

const (
	SettingAboutUs       SettingKind = "about-us"
	SettingPrivacyPolicy SettingKind = "privacy-policy"
	SettingTerms         SettingKind = "terms"
)

func (k SettingKind) Valid() bool {
	switch k {
	case SettingAboutUs, SettingPrivacyPolicy, SettingTerms:
		return true
	}
	return false
}

type Setting struct {
	Kind        SettingKind `json:"kind"`
	Description string      `json:"description"`
	Images      []string    `json:"image"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

const settingsTable = "settings"

type SettingStore struct {
	drv dialect.Driver
}

func (s *SettingStore) Get(ctx context.Context, kind SettingKind) (*Setting, error) {
	q, args := builder().Select("kind", "description", "images", "updated_at").
		From(sql.Table(settingsTable)).
		Where(sql.EQ("kind", string(kind))).
		Query()
	var out Setting
	err := queryOne(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		var (
			k      string
			images []byte
		)
		if err := rows.Scan(&k, &out.Description, &images, &out.UpdatedAt); err != nil {
			return fmt.Errorf("scan setting: %w", err)
		}
		out.Kind = SettingKind(k)
		return fromJSONB(images, &out.Images)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Upsert replaces the singleton row for st.Kind.
func (s *SettingStore) Upsert(ctx context.Context, st *Setting) error {
	st.UpdatedAt = time.Now().UTC()
	if st.Images == nil {
		st.Images = []string{}
	}
	q, args := builder().Insert(settingsTable).
		Columns("kind", "description", "images", "updated_at").
		Values(string(st.Kind), st.Description, mustJSONB(st.Images), st.UpdatedAt).
		OnConflict(
			sql.ConflictColumns("kind"),
			sql.ResolveWithNewValues(),
		).
		Query()
	if _, err := exec(ctx, s.drv, q, args); err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}
