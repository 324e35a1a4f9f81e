package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

// Profile is the public face of a chat participant.
type Profile struct {
	ID    uuid.UUID             `json:"id"`
	Kind  constants.AccountKind `json:"kind"`
	Name  string                `json:"name"`
	Email string                `json:"email"`
	Role  constants.Role        `json:"role"`
	Image string                `json:"image,omitempty"`
}

func (p *Profile) Participant() repo.Participant {
	return repo.Participant{ID: p.ID, Kind: p.Kind}
}

// Directory resolves participants across the user and admin tables.
type Directory interface {
	Find(ctx context.Context, id uuid.UUID) (*Profile, error)
	Resolve(ctx context.Context, ps []repo.Participant) (map[uuid.UUID]*Profile, error)
}

type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.User, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*repo.User, error)
}

type AdminLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.Admin, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*repo.Admin, error)
}

type directory struct {
	users  UserLookup
	admins AdminLookup
}

func NewDirectory(users UserLookup, admins AdminLookup) Directory {
	return &directory{users: users, admins: admins}
}

func userProfile(u *repo.User) *Profile {
	p := &Profile{ID: u.ID, Kind: constants.KindUser, Name: u.Name, Email: u.Email, Role: u.Role}
	if len(u.Images) > 0 {
		p.Image = u.Images[0]
	}
	return p
}

func adminProfile(a *repo.Admin) *Profile {
	p := &Profile{ID: a.ID, Kind: constants.KindAdmin, Name: a.Name, Email: a.Email, Role: a.Role}
	if len(a.Images) > 0 {
		p.Image = a.Images[0]
	}
	return p
}

// Find looks the id up as a staff user first, then as an admin.
func (d *directory) Find(ctx context.Context, id uuid.UUID) (*Profile, error) {
	u, err := d.users.Get(ctx, id)
	if err == nil {
		return userProfile(u), nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}
	a, err := d.admins.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return adminProfile(a), nil
}

func (d *directory) Resolve(ctx context.Context, ps []repo.Participant) (map[uuid.UUID]*Profile, error) {
	byKind := lo.GroupBy(ps, func(p repo.Participant) constants.AccountKind { return p.Kind })
	ids := func(k constants.AccountKind) []uuid.UUID {
		return lo.Uniq(lo.Map(byKind[k], func(p repo.Participant, _ int) uuid.UUID { return p.ID }))
	}

	out := make(map[uuid.UUID]*Profile, len(ps))
	if want := ids(constants.KindUser); len(want) > 0 {
		users, err := d.users.GetMany(ctx, want)
		if err != nil {
			return nil, fmt.Errorf("resolve users: %w", err)
		}
		for _, u := range users {
			out[u.ID] = userProfile(u)
		}
	}
	if want := ids(constants.KindAdmin); len(want) > 0 {
		admins, err := d.admins.GetMany(ctx, want)
		if err != nil {
			return nil, fmt.Errorf("resolve admins: %w", err)
		}
		for _, a := range admins {
			out[a.ID] = adminProfile(a)
		}
	}
	return out, nil
}
