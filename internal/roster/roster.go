// Package roster models the retail organization: districts, stores, staff
// and the role rules that decide what each person may see and change.
package roster

import (
	"fmt"
	"slices"
	"strings"
)

type Role string

const (
	RoleExpert Role = "Mobile Expert"
	RoleRAM    Role = "RAM"
	RoleRSM    Role = "RSM"
	RoleDM     Role = "District Manager"
	RoleRD     Role = "Regional Director"
)

var roles = []Role{RoleExpert, RoleRAM, RoleRSM, RoleDM, RoleRD}

// ParseRole accepts the display name or the short form ("expert", "dm", ...).
func ParseRole(value string) (Role, error) {
	v := strings.TrimSpace(value)
	for _, r := range roles {
		if strings.EqualFold(v, string(r)) {
			return r, nil
		}
	}
	switch strings.ToLower(v) {
	case "expert", "me":
		return RoleExpert, nil
	case "dm":
		return RoleDM, nil
	case "rd":
		return RoleRD, nil
	}
	return "", fmt.Errorf("unknown role %q", value)
}

type District struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Store struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DistrictID string `json:"districtId"`
}

type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	StoreID    string `json:"storeId"`
	DistrictID string `json:"districtId"`
}

func (u User) is(allowed ...Role) bool {
	return slices.Contains(allowed, u.Role)
}

func (u User) CanManageRoster() bool { return u.is(RoleRSM, RoleDM, RoleRD) }

func (u User) CanManageQuiz() bool { return u.is(RoleDM, RoleRD) }

func (u User) CanManageData() bool { return u.is(RoleDM, RoleRD) }

func (u User) CanReviewHunts() bool { return u.is(RoleRAM, RoleRSM, RoleDM, RoleRD) }

func (u User) CanAuthorScenarios() bool { return u.is(RoleRSM, RoleDM, RoleRD) }

// CanAssignStore reports whether u may place new users in any store rather
// than only their own.
func (u User) CanAssignStore() bool { return u.is(RoleDM, RoleRD) }

// CanSeeUser applies the roster visibility rule.
func (u User) CanSeeUser(other User) bool {
	switch u.Role {
	case RoleRD:
		return true
	case RoleDM:
		return other.DistrictID == u.DistrictID
	case RoleRSM, RoleRAM:
		return other.StoreID == u.StoreID
	default:
		return false
	}
}

// Scope is the location stamped on a record: who produced it and where.
type Scope struct {
	UserID     string
	StoreID    string
	DistrictID string
}

// CanSeeRecord applies the dashboard visibility rule for quiz results and
// hunt transcripts.
func (u User) CanSeeRecord(rec Scope) bool {
	switch u.Role {
	case RoleExpert:
		return rec.UserID == u.ID
	case RoleRAM:
		return rec.StoreID == u.StoreID || rec.UserID == u.ID
	case RoleRSM, RoleRD:
		return true
	case RoleDM:
		return rec.DistrictID == u.DistrictID
	default:
		return false
	}
}

func VisibleUsers(viewer User, users []User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if viewer.CanSeeUser(u) {
			out = append(out, u)
		}
	}
	return out
}

// LoginCandidates lists the names offered on the login screen for a district
// and optional store selection.
func LoginCandidates(users []User, districtID, storeID string) []User {
	out := make([]User, 0)
	for _, u := range users {
		switch {
		case u.Role == RoleRD:
			out = append(out, u)
		case u.Role == RoleDM:
			if u.DistrictID == districtID && storeID == "" {
				out = append(out, u)
			}
		case storeID != "" && u.StoreID == storeID:
			out = append(out, u)
		}
	}
	return out
}

// Directory is a read-only view over districts and stores.
type Directory struct {
	districts map[string]District
	stores    map[string]Store
}

func NewDirectory(districts []District, stores []Store) *Directory {
	d := &Directory{
		districts: make(map[string]District, len(districts)),
		stores:    make(map[string]Store, len(stores)),
	}
	for _, district := range districts {
		d.districts[district.ID] = district
	}
	for _, store := range stores {
		d.stores[store.ID] = store
	}
	return d
}

const UnknownName = "Unknown"

func (d *Directory) StoreName(id string) string {
	if s, ok := d.stores[id]; ok {
		return s.Name
	}
	return UnknownName
}

func (d *Directory) DistrictName(id string) string {
	if district, ok := d.districts[id]; ok {
		return district.Name
	}
	return UnknownName
}

func (d *Directory) Store(id string) (Store, bool) {
	s, ok := d.stores[id]
	return s, ok
}

// PlaceNewUser fills in store and district for a user being added by actor.
// Store-level managers can only add to their own store; district and region
// leaders pick the store and inherit its district.
func (d *Directory) PlaceNewUser(actor User, name string, role Role, storeID string) (User, error) {
	if !actor.CanManageRoster() {
		return User{}, fmt.Errorf("role %s cannot manage the roster", actor.Role)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, fmt.Errorf("name is required")
	}
	if role == RoleRD || (role == RoleDM && !actor.CanAssignStore()) {
		return User{}, fmt.Errorf("role %s cannot add a %s", actor.Role, role)
	}

	u := User{Name: name, Role: role, StoreID: actor.StoreID, DistrictID: actor.DistrictID}
	if actor.CanAssignStore() {
		u.StoreID = storeID
		if s, ok := d.stores[storeID]; ok {
			u.DistrictID = s.DistrictID
		}
	}
	return u, nil
}
