// Package roles grants and toggles member roles from durable button identifiers.
package roles

import (
	"context"
	"fmt"

	"github.com/Maximus17a/BotRexy/internal/errs"
	"github.com/Maximus17a/BotRexy/internal/utils"
)

// Platform is the role surface of the chat gateway. MemberRoles and RoleExists
// return errs.ErrTargetNotFound when the member or guild is unknown.
type Platform interface {
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
	RoleExists(ctx context.Context, guildID, roleID string) (bool, error)
	AddRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error
}

type Registry struct {
	platform Platform
	locks    *utils.KeyedMutex
}

func NewRegistry(platform Platform) *Registry {
	return &Registry{platform: platform, locks: utils.NewKeyedMutex()}
}

// Toggle adds roleID when the member lacks it and removes it otherwise.
// granted reports the state after the call.
func (r *Registry) Toggle(ctx context.Context, guildID, userID, roleID string) (bool, error) {
	unlock := r.lock(guildID, userID, roleID)
	defer unlock()

	has, err := r.memberHasRole(ctx, guildID, userID, roleID)
	if err != nil {
		return false, err
	}
	if has {
		if err := r.platform.RemoveRole(ctx, guildID, userID, roleID, "Rol de juego removido"); err != nil {
			return true, fmt.Errorf("%w: remove role: %v", errs.ErrActionFailed, err)
		}
		return false, nil
	}
	if err := r.platform.AddRole(ctx, guildID, userID, roleID, "Rol de juego agregado"); err != nil {
		return false, fmt.Errorf("%w: add role: %v", errs.ErrActionFailed, err)
	}
	return true, nil
}

// Verify grants roleID once. It never removes the role.
func (r *Registry) Verify(ctx context.Context, guildID, userID, roleID string) (bool, error) {
	unlock := r.lock(guildID, userID, roleID)
	defer unlock()

	has, err := r.memberHasRole(ctx, guildID, userID, roleID)
	if err != nil {
		return false, err
	}
	if has {
		return true, nil
	}
	if err := r.platform.AddRole(ctx, guildID, userID, roleID, "Verificación completada"); err != nil {
		return false, fmt.Errorf("%w: add role: %v", errs.ErrActionFailed, err)
	}
	return false, nil
}

func (r *Registry) memberHasRole(ctx context.Context, guildID, userID, roleID string) (bool, error) {
	exists, err := r.platform.RoleExists(ctx, guildID, roleID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("%w: role %s", errs.ErrTargetNotFound, roleID)
	}
	current, err := r.platform.MemberRoles(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	for _, id := range current {
		if id == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Registry) lock(guildID, userID, roleID string) func() {
	return r.locks.Lock(guildID + ":" + userID + ":" + roleID)
}
