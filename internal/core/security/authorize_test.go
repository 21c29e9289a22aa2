package security

import (
	"testing"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
)

var (
	div1 = id.MustParse("018f0000-0000-7000-8000-000000000001")
	div2 = id.MustParse("018f0000-0000-7000-8000-000000000002")
)

func principal(role Role, divisions ...id.ID) Principal {
	return Principal{UserID: id.New(), Role: role, DivisionIDs: divisions}
}

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name   string
		p      Principal
		action Action
		target Target
		want   bool
	}{
		// Admin bypasses everything, including division overlap.
		{"admin reads foreign division", principal(RoleAdmin), ActionRead, CredentialIn(div1), true},
		{"admin updates foreign division", principal(RoleAdmin), ActionUpdate, CredentialIn(div2), true},
		{"admin deletes foreign division", principal(RoleAdmin), ActionDelete, CredentialIn(div2), true},
		{"admin assigns", principal(RoleAdmin), ActionAssign, Target{}, true},
		{"admin changes role", principal(RoleAdmin), ActionChangeRole, Target{}, true},

		// Read/create are membership-scoped for both non-admin roles.
		{"normal reads own division", principal(RoleNormal, div1), ActionRead, CredentialIn(div1), true},
		{"normal reads foreign division", principal(RoleNormal, div1), ActionRead, CredentialIn(div2), false},
		{"normal creates in own division", principal(RoleNormal, div1), ActionCreate, CredentialIn(div1), true},
		{"normal creates in foreign division", principal(RoleNormal, div1), ActionCreate, CredentialIn(div2), false},
		{"management reads own division", principal(RoleManagement, div1), ActionRead, CredentialIn(div1), true},
		{"management reads foreign division", principal(RoleManagement, div1), ActionRead, CredentialIn(div2), false},

		// Normal users never write, even within their own division.
		{"normal updates own division", principal(RoleNormal, div1), ActionUpdate, CredentialIn(div1), false},
		{"normal deletes own division", principal(RoleNormal, div1), ActionDelete, CredentialIn(div1), false},

		// Management writes only within own divisions.
		{"management updates own division", principal(RoleManagement, div1), ActionUpdate, CredentialIn(div1), true},
		{"management updates foreign division", principal(RoleManagement, div1), ActionUpdate, CredentialIn(div2), false},
		{"management deletes own division", principal(RoleManagement, div1), ActionDelete, CredentialIn(div1), true},
		{"management deletes foreign division", principal(RoleManagement, div1), ActionDelete, CredentialIn(div2), false},

		// Assignment and role changes are admin-only.
		{"normal assigns", principal(RoleNormal, div1), ActionAssign, Target{}, false},
		{"management assigns", principal(RoleManagement, div1), ActionAssign, Target{}, false},
		{"management changes role", principal(RoleManagement, div1), ActionChangeRole, Target{}, false},

		// No public visibility: empty division set denies everything non-admin.
		{"normal with no divisions reads", principal(RoleNormal), ActionRead, CredentialIn(div1), false},
		{"management with no divisions updates", principal(RoleManagement), ActionUpdate, CredentialIn(div1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(tt.p, tt.action, tt.target); got != tt.want {
				t.Errorf("CanAccess(%s/%s) = %v, want %v", tt.p.Role, tt.action, got, tt.want)
			}
		})
	}
}

func TestCanAccess_AdminIgnoresDivisionSet(t *testing.T) {
	// Admin with an empty division set still reads any credential.
	p := Principal{UserID: id.New(), Role: RoleAdmin}
	if !CanAccess(p, ActionRead, CredentialIn(div1)) {
		t.Fatal("admin with empty division set must be allowed to read")
	}
}

func TestRequire(t *testing.T) {
	p := principal(RoleNormal, div1)

	if err := Require(p, ActionRead, CredentialIn(div1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := Require(p, ActionUpdate, CredentialIn(div1))
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if !apperror.IsForbidden(err) {
		t.Errorf("expected FORBIDDEN code, got %v", err)
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []Role{RoleNormal, RoleManagement, RoleAdmin} {
		if !ValidRole(r) {
			t.Errorf("role %q should be valid", r)
		}
	}
	for _, r := range []Role{"superuser", "", "ADMIN"} {
		if ValidRole(Role(r)) {
			t.Errorf("role %q should be invalid", r)
		}
	}
}

func TestMemberOf_ComparesByID(t *testing.T) {
	p := principal(RoleNormal, div1)
	if p.MemberOf(div2) {
		t.Fatal("membership must compare by id")
	}
	if !p.MemberOf(div1) {
		t.Fatal("expected membership of div1")
	}
}
