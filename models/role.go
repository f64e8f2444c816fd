package models

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

type Role int

const (
	RoleAdmin Role = iota
	RoleIssuer
)

// Roles lists every role the ledger knows about.
var Roles = []Role{RoleAdmin, RoleIssuer}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "DEFAULT_ADMIN_ROLE"
	case RoleIssuer:
		return "MINTER_ROLE"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleIssuer
}

// Hash returns the 32-byte role identifier external indexers key roles by.
// The admin role is the zero word; every other role is keccak256 of its name.
func (r Role) Hash() [32]byte {
	var out [32]byte
	if r == RoleAdmin {
		return out
	}
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(r.String()))
	copy(out[:], h.Sum(nil))
	return out
}

func (r Role) HexHash() string {
	h := r.Hash()
	return "0x" + hex.EncodeToString(h[:])
}

// ParseRole accepts a role name ("MINTER_ROLE", "issuer", "admin", ...) or its hex hash.
func ParseRole(s string) (Role, error) {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "default_admin_role", "admin", "administrator":
		return RoleAdmin, nil
	case "minter_role", "minter", "issuer":
		return RoleIssuer, nil
	}
	for _, r := range Roles {
		if strings.EqualFold(v, r.HexHash()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
