// Package authz gates every operation of the progression core on the
// external permission capability plus the current user's role-active flag.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nvelasco/fasegate/pkg/models"
)

// ErrPermissionDenied indicates the current credentials may not perform the
// requested operation. It is surfaced as a non-fatal, user-visible message.
var ErrPermissionDenied = errors.New("permission denied")

// Screen/action pairs checked against the permission capability.
const (
	ScreenPhasePanel = "producto-fases"
	ActionView       = "ver"
	ActionUpdate     = "actualizar"
)

// Authorizer answers whether the current session may read or mutate the
// progression state. Implementations return ErrPermissionDenied (possibly
// wrapped) when not.
type Authorizer interface {
	CanView(ctx context.Context) error
	CanUpdate(ctx context.Context) error
}

// PermissionChecker is the external capability-permission check.
type PermissionChecker interface {
	CheckPermission(ctx context.Context, screen, action string) (bool, error)
}

// RoleResolver is the external role read endpoint.
type RoleResolver interface {
	Role(ctx context.Context, id int) (*models.Role, error)
}

// Gate is the conjunction of the role-active flag resolved at session start
// and the per-action capability check.
type Gate struct {
	perms      PermissionChecker
	screen     string
	roleActive bool
}

// NewGate builds the gate for one screen. roleActive is the flag resolved
// once at session start; pass true when no role was resolvable (the
// documented default).
func NewGate(perms PermissionChecker, screen string, roleActive bool) *Gate {
	return &Gate{
		perms:      perms,
		screen:     screen,
		roleActive: roleActive,
	}
}

// CanView reports whether read operations are allowed.
func (g *Gate) CanView(ctx context.Context) error {
	return g.check(ctx, ActionView)
}

// CanUpdate reports whether mutating operations are allowed.
func (g *Gate) CanUpdate(ctx context.Context) error {
	return g.check(ctx, ActionUpdate)
}

func (g *Gate) check(ctx context.Context, action string) error {
	if !g.roleActive {
		return fmt.Errorf("%w: role is inactive", ErrPermissionDenied)
	}

	allowed, err := g.perms.CheckPermission(ctx, g.screen, action)
	if err != nil {
		return fmt.Errorf("permission check for %s/%s failed: %w", g.screen, action, err)
	}

	if !allowed {
		return fmt.Errorf("%w: %s/%s", ErrPermissionDenied, g.screen, action)
	}

	return nil
}

// IsPermissionDenied checks whether an error is a permission denial.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// ResolveActor resolves the acting user once at session start. The role is
// optional: when roleID is zero or the role endpoint fails, the actor
// defaults to an active, non-supervisor role. Supervisor detection by
// role-name substring lives here and nowhere else; downstream code only
// reads Actor.Supervisor.
func ResolveActor(ctx context.Context, roles RoleResolver, logger *slog.Logger, userID, roleID int) models.Actor {
	actor := models.Actor{
		UserID:     userID,
		RoleID:     roleID,
		RoleActive: true,
	}

	if roleID == 0 {
		return actor
	}

	role, err := roles.Role(ctx, roleID)
	if err != nil {
		logger.WarnContext(ctx, "role lookup failed, assuming active non-supervisor",
			"role_id", roleID, "error", err)

		return actor
	}

	actor.RoleName = role.Name
	actor.RoleActive = role.Active
	actor.Supervisor = strings.Contains(strings.ToLower(role.Name), "supervisor")

	return actor
}
