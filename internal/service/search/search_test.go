package search

import (
	"context"
	"errors"
	"testing"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/internal/service/cases"
)

type fakeUsers struct {
	gotTerm  string
	gotLimit int
}

func (f *fakeUsers) Search(_ context.Context, term string, limit int) ([]*repo.User, error) {
	f.gotTerm, f.gotLimit = term, limit
	return nil, nil
}

type fakeOrgs struct{ err error }

func (f fakeOrgs) Search(context.Context, string, int) ([]*repo.Organization, error) {
	return []*repo.Organization{{Name: "Smile"}}, f.err
}

type fakeCases struct{ actor *cases.Actor }

func (f *fakeCases) Search(_ context.Context, actor *cases.Actor, _ string) ([]*repo.Case, error) {
	f.actor = actor
	return nil, nil
}

func TestQueryRequired(t *testing.T) {
	svc := New(&fakeUsers{}, nil, &fakeCases{}, fakeOrgs{}, fakeOrgs{})
	ctx := context.Background()
	for name, call := range map[string]func() error{
		"users":   func() error { _, err := svc.Users(ctx, "  "); return err },
		"cases":   func() error { _, err := svc.Cases(ctx, nil, ""); return err },
		"clinics": func() error { _, err := svc.Clinics(ctx, ""); return err },
		"labs":    func() error { _, err := svc.Labs(ctx, "\t"); return err },
	} {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, ErrQueryRequired) {
				t.Errorf("err = %v, want ErrQueryRequired", err)
			}
		})
	}
}

func TestSearchPassesTermAndLimit(t *testing.T) {
	users := &fakeUsers{}
	cs := &fakeCases{}
	svc := New(users, nil, cs, fakeOrgs{}, fakeOrgs{err: errors.New("db down")})
	ctx := context.Background()

	got, err := svc.Users(ctx, "  smith ")
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("empty result = %#v, want non-nil empty slice", got)
	}
	if users.gotTerm != "smith" || users.gotLimit != Limit {
		t.Errorf("searched %q limit %d", users.gotTerm, users.gotLimit)
	}

	actor := &cases.Actor{}
	if _, err := svc.Cases(ctx, actor, "CN-1"); err != nil || cs.actor != actor {
		t.Errorf("Cases did not pass the actor through: %v", err)
	}

	if _, err := svc.Labs(ctx, "lab"); err == nil {
		t.Error("store error swallowed")
	}
	clinics, err := svc.Clinics(ctx, "smile")
	if err != nil || len(clinics) != 1 {
		t.Errorf("Clinics = %v, %v", clinics, err)
	}
}
