package authorize

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
	"github.com/Alijeyrad/dentlab_backend/pkg/reqctx"
)

type testClaims struct {
	id   uuid.UUID
	role constants.Role
}

func (c testClaims) GetUserID() uuid.UUID           { return c.id }
func (c testClaims) GetSessionID() *uuid.UUID       { return nil }
func (c testClaims) GetTokenType() string           { return "access" }
func (c testClaims) GetRole() constants.Role        { return c.role }
func (c testClaims) GetKind() constants.AccountKind { return constants.KindUser }
func (c testClaims) IsExpired() bool                { return false }

func TestSubjectFromContext(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		ctx     context.Context
		want    GroupSubject
		wantErr bool
	}{
		{"claims present", reqctx.WithClaims(context.Background(), testClaims{id: id}), GroupSubject(id.String()), false},
		{"anonymous", context.Background(), "", true},
		{"nil user id", reqctx.WithClaims(context.Background(), testClaims{}), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SubjectFromContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SubjectFromContext() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SubjectFromContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnforceContext(t *testing.T) {
	auth, _ := NewAuthorization(createTestEnforcer(t))
	ctx := context.Background()
	if err := SeedDefaultPolicies(ctx, auth); err != nil {
		t.Fatal(err)
	}

	nurse := uuid.New()
	if err := AssignAccountRole(ctx, auth, nurse, constants.RolePracticeNurse); err != nil {
		t.Fatal(err)
	}
	nurseCtx := reqctx.WithClaims(ctx, testClaims{id: nurse, role: constants.RolePracticeNurse})

	if err := EnforceContext(nurseCtx, auth, ResourceCase, ActionCreate); err != nil {
		t.Errorf("nurse create case: %v", err)
	}
	if err := EnforceContext(nurseCtx, auth, ResourceCaseReview, ActionExecute); !errors.Is(err, ErrForbidden) {
		t.Errorf("nurse review case error = %v, want ErrForbidden", err)
	}
	if err := EnforceContext(ctx, auth, ResourceCase, ActionRead); !errors.Is(err, ErrForbidden) {
		t.Errorf("anonymous error = %v, want ErrForbidden", err)
	}
}
