package ledger

import (
	"context"
	"fmt"
	"sort"

	"festival-ledger/internal/status"
	"festival-ledger/models"
)

type accessControl struct {
	members map[models.Role]map[string]struct{}
}

func newAccessControl() accessControl {
	return accessControl{members: make(map[models.Role]map[string]struct{})}
}

func (a *accessControl) has(role models.Role, account string) bool {
	_, ok := a.members[role][account]
	return ok
}

// add reports whether the membership changed.
func (a *accessControl) add(role models.Role, account string) bool {
	if a.has(role, account) {
		return false
	}
	if a.members[role] == nil {
		a.members[role] = make(map[string]struct{})
	}
	a.members[role][account] = struct{}{}
	return true
}

func (a *accessControl) remove(role models.Role, account string) bool {
	if !a.has(role, account) {
		return false
	}
	delete(a.members[role], account)
	return true
}

func (a *accessControl) count(role models.Role) int {
	return len(a.members[role])
}

// GrantRole adds account to role. Only administrators may grant; granting a
// role the account already holds is a no-op.
func (l *Ledger) GrantRole(ctx context.Context, caller string, role models.Role, account string) error {
	if err := checkRole(role); err != nil {
		return err
	}
	if account == "" {
		return fmt.Errorf("grant %s: %w", role, status.ErrInvalidAccount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.access.has(models.RoleAdmin, caller) {
		return fmt.Errorf("grant %s: %w", role, status.ErrUnauthorized)
	}
	if !l.access.add(role, account) {
		return nil
	}

	l.logger.Info("role granted", "role", role.String(), "account", account, "by", caller)
	l.emit(models.LedgerEvent{
		Kind:  models.EventRoleGranted,
		Actor: caller,
		To:    account,
		Role:  role.String(),
	})
	return nil
}

// RevokeRole removes account from role. Revoking the last administrator is refused.
func (l *Ledger) RevokeRole(ctx context.Context, caller string, role models.Role, account string) error {
	if err := checkRole(role); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.access.has(models.RoleAdmin, caller) {
		return fmt.Errorf("revoke %s: %w", role, status.ErrUnauthorized)
	}
	return l.removeRole(caller, role, account)
}

// RenounceRole removes the caller's own membership.
func (l *Ledger) RenounceRole(ctx context.Context, caller string, role models.Role) error {
	if err := checkRole(role); err != nil {
		return err
	}
	if caller == "" {
		return fmt.Errorf("renounce %s: %w", role, status.ErrInvalidAccount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.removeRole(caller, role, caller)
}

func (l *Ledger) removeRole(caller string, role models.Role, account string) error {
	if !l.access.has(role, account) {
		return nil
	}
	if role == models.RoleAdmin && l.access.count(models.RoleAdmin) == 1 {
		return fmt.Errorf("revoke %s from %s: %w", role, account, status.ErrLastAdminProtected)
	}

	l.access.remove(role, account)
	l.logger.Info("role revoked", "role", role.String(), "account", account, "by", caller)
	l.emit(models.LedgerEvent{
		Kind:  models.EventRoleRevoked,
		Actor: caller,
		From:  account,
		Role:  role.String(),
	})
	return nil
}

func (l *Ledger) HasRole(role models.Role, account string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.access.has(role, account)
}

// RoleMembers returns the holders of role in lexical order.
func (l *Ledger) RoleMembers(role models.Role) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, l.access.count(role))
	for account := range l.access.members[role] {
		out = append(out, account)
	}
	sort.Strings(out)
	return out
}

func checkRole(role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %d", role)
	}
	return nil
}
