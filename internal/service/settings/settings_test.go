package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

type memStore map[repo.SettingKind]repo.Setting

func (m memStore) Get(_ context.Context, k repo.SettingKind) (*repo.Setting, error) {
	st, ok := m[k]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &st, nil
}

func (m memStore) Upsert(_ context.Context, st *repo.Setting) error {
	m[st.Kind] = *st
	return nil
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	svc := New(memStore{})

	if _, err := svc.Get(ctx, "faq"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("unknown kind err = %v", err)
	}
	if _, err := svc.Get(ctx, repo.SettingTerms); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing page err = %v", err)
	}
	if _, err := svc.Put(ctx, repo.SettingTerms, "  ", nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty put err = %v", err)
	}

	if _, err := svc.Put(ctx, repo.SettingAboutUs, "We make crowns", []string{"https://cdn/a.png"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// text-only update keeps the stored images
	st, err := svc.Put(ctx, repo.SettingAboutUs, "We make crowns and bridges", nil)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if st.Description != "We make crowns and bridges" || len(st.Images) != 1 {
		t.Errorf("setting = %+v", st)
	}
	got, err := svc.Get(ctx, repo.SettingAboutUs)
	if err != nil || got.Description != st.Description {
		t.Errorf("Get = %+v, %v", got, err)
	}
}
