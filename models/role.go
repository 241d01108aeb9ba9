package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role ist die geschlossene Menge der Nutzerrollen des Dashboard-Backends.
type Role int

const (
	RoleMember Role = iota + 1
	RoleLeader
	RoleAdmin
)

// ParseRole wandelt die Rollenbezeichnung des Backends in eine Role um.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "member":
		return RoleMember, nil
	case "leader":
		return RoleLeader, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleLeader:
		return "leader"
	case RoleAdmin:
		return "admin"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// MarshalJSON schreibt die Rolle als String.
func (r Role) MarshalJSON() ([]byte, error) {
	switch r {
	case RoleMember, RoleLeader, RoleAdmin:
		return json.Marshal(r.String())
	}
	return nil, fmt.Errorf("invalid role %d", int(r))
}

// UnmarshalJSON akzeptiert nur bekannte Rollen.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
