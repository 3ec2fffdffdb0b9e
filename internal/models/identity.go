package models

import "strings"

// Identity is a shape-tolerant fragment of a user's identifying fields.
// Different relation paths return different subsets (the creator carries
// email and phone, a passenger may carry only a name), so every field is
// optional and matching works against whichever fields are present.
type Identity struct {
	ID       string  `json:"id,omitempty"`
	Email    string  `json:"email,omitempty"`
	FullName string  `json:"fullName,omitempty"`
	Phone    string  `json:"phone,omitempty"`
	Gender   string  `json:"gender,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// Keys returns the set of non-empty identifiers, trimmed and lowercased.
// An identity with no populated fields yields an empty set and can never
// match anything (empty strings must not collide).
func (i Identity) Keys() map[string]struct{} {
	keys := make(map[string]struct{}, 4)
	for _, field := range []string{i.ID, i.Email, i.FullName, i.Phone} {
		k := strings.ToLower(strings.TrimSpace(field))
		if k != "" {
			keys[k] = struct{}{}
		}
	}
	return keys
}

// Matches reports whether any single normalized identifier is shared
// between the two identities.
func (i Identity) Matches(other Identity) bool {
	mine := i.Keys()
	if len(mine) == 0 {
		return false
	}
	for k := range other.Keys() {
		if _, ok := mine[k]; ok {
			return true
		}
	}
	return false
}

// IdentityFromUser builds a full identity fragment from a stored user.
func IdentityFromUser(u *User) Identity {
	return Identity{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Phone:    u.Phone,
		Gender:   u.Gender,
		Avatar:   u.Avatar,
	}
}
