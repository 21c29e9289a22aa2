package auth

import (
	"context"
	"fmt"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/internal/core/security"
	"credvault/pkg/logger"
)

// Assignment operations mutate the user<->division and user<->OU membership
// relations. All of them are admin-only: the route layer already gates on
// role, and the service re-checks through the authorization engine so no
// alternate code path can skip the decision.
//
// Membership writes go through atomic add-if-absent / delete-if-present
// store operations; the affected-row outcome, not an application-side
// read-modify-write, decides AlreadyAssigned / NotAssigned.

// AssignDivision links a user to a division.
func (s *Service) AssignDivision(ctx context.Context, p security.Principal, userID, divisionID id.ID) error {
	if err := security.Require(p, security.ActionAssign, security.Target{}); err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return apperror.NewNotFound("user", userID.String())
	}
	exists, err := s.divisions.Exists(ctx, divisionID)
	if err != nil {
		return fmt.Errorf("check division: %w", err)
	}
	if !exists {
		return apperror.NewNotFound("division", divisionID.String())
	}

	added, err := s.userRepo.AddDivision(ctx, userID, divisionID)
	if err != nil {
		return fmt.Errorf("assign division: %w", err)
	}
	if !added {
		return apperror.NewAlreadyAssigned("division", divisionID.String())
	}

	s.audit(ctx, "assign_division", userID, map[string]any{"division_id": divisionID})
	logger.Info(ctx, "division assigned",
		"user_id", userID,
		"division_id", divisionID,
		"assigned_by", p.UserID)
	return nil
}

// UnassignDivision removes a user's division membership.
func (s *Service) UnassignDivision(ctx context.Context, p security.Principal, userID, divisionID id.ID) error {
	if err := security.Require(p, security.ActionAssign, security.Target{}); err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return apperror.NewNotFound("user", userID.String())
	}

	removed, err := s.userRepo.RemoveDivision(ctx, userID, divisionID)
	if err != nil {
		return fmt.Errorf("unassign division: %w", err)
	}
	if !removed {
		return apperror.NewNotAssigned("division", divisionID.String())
	}

	s.audit(ctx, "unassign_division", userID, map[string]any{"division_id": divisionID})
	logger.Info(ctx, "division unassigned",
		"user_id", userID,
		"division_id", divisionID,
		"unassigned_by", p.UserID)
	return nil
}

// AssignOU links a user directly to an organisational unit. Direct OU
// assignment is independent of, and additive to, the OUs derived from the
// user's divisions.
func (s *Service) AssignOU(ctx context.Context, p security.Principal, userID, ouID id.ID) error {
	if err := security.Require(p, security.ActionAssign, security.Target{}); err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return apperror.NewNotFound("user", userID.String())
	}
	exists, err := s.ous.Exists(ctx, ouID)
	if err != nil {
		return fmt.Errorf("check ou: %w", err)
	}
	if !exists {
		return apperror.NewNotFound("organisational unit", ouID.String())
	}

	added, err := s.userRepo.AddOU(ctx, userID, ouID)
	if err != nil {
		return fmt.Errorf("assign ou: %w", err)
	}
	if !added {
		return apperror.NewAlreadyAssigned("organisational unit", ouID.String())
	}

	s.audit(ctx, "assign_ou", userID, map[string]any{"ou_id": ouID})
	logger.Info(ctx, "ou assigned",
		"user_id", userID,
		"ou_id", ouID,
		"assigned_by", p.UserID)
	return nil
}

// UnassignOU removes a user's direct OU membership.
func (s *Service) UnassignOU(ctx context.Context, p security.Principal, userID, ouID id.ID) error {
	if err := security.Require(p, security.ActionAssign, security.Target{}); err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return apperror.NewNotFound("user", userID.String())
	}

	removed, err := s.userRepo.RemoveOU(ctx, userID, ouID)
	if err != nil {
		return fmt.Errorf("unassign ou: %w", err)
	}
	if !removed {
		return apperror.NewNotAssigned("organisational unit", ouID.String())
	}

	s.audit(ctx, "unassign_ou", userID, map[string]any{"ou_id": ouID})
	logger.Info(ctx, "ou unassigned",
		"user_id", userID,
		"ou_id", ouID,
		"unassigned_by", p.UserID)
	return nil
}

// ChangeRole overwrites a user's role. No side effects on memberships.
func (s *Service) ChangeRole(ctx context.Context, p security.Principal, userID id.ID, role security.Role) error {
	if err := security.Require(p, security.ActionChangeRole, security.Target{}); err != nil {
		return err
	}
	if !security.ValidRole(role) {
		return apperror.NewValidation("invalid role").
			WithDetail("field", "role").
			WithDetail("value", string(role))
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return apperror.NewNotFound("user", userID.String())
	}

	if err := s.userRepo.SetRole(ctx, userID, role); err != nil {
		return fmt.Errorf("change role: %w", err)
	}

	s.audit(ctx, "change_role", userID, map[string]any{
		"from": user.Role,
		"to":   role,
	})
	logger.Info(ctx, "role changed",
		"user_id", userID,
		"from", user.Role,
		"to", role,
		"changed_by", p.UserID)
	return nil
}
