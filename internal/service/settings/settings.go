// Package settings serves the singleton content pages: about us, privacy
// policy and terms.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

var (
	ErrUnknownKind = errors.New("unknown settings page")
	ErrNotFound    = errors.New("Content not found")
	ErrEmpty       = errors.New("description is required")
)

type Store interface {
	Get(ctx context.Context, kind repo.SettingKind) (*repo.Setting, error)
	Upsert(ctx context.Context, st *repo.Setting) error
}

type Service interface {
	Get(ctx context.Context, kind repo.SettingKind) (*repo.Setting, error)
	// Put replaces the page text. Images replace the stored ones only when
	// at least one is given.
	Put(ctx context.Context, kind repo.SettingKind, description string, images []string) (*repo.Setting, error)
}

type settingsService struct {
	store Store
}

func New(store Store) Service {
	return &settingsService{store: store}
}

func (s *settingsService) Get(ctx context.Context, kind repo.SettingKind) (*repo.Setting, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	st, err := s.store.Get(ctx, kind)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	return st, nil
}

func (s *settingsService) Put(ctx context.Context, kind repo.SettingKind, description string, images []string) (*repo.Setting, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	description = strings.TrimSpace(description)
	images = lo.Uniq(lo.Compact(images))
	if description == "" && len(images) == 0 {
		return nil, ErrEmpty
	}

	st := &repo.Setting{Kind: kind, Description: description, Images: images}
	if prev, err := s.store.Get(ctx, kind); err == nil {
		if st.Description == "" {
			st.Description = prev.Description
		}
		if len(st.Images) == 0 {
			st.Images = prev.Images
		}
	} else if !repo.IsNotFound(err) {
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}

	if err := s.store.Upsert(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
