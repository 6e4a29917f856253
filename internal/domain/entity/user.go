package entity

// Capability names used by the access gate.
const (
	CapabilityBypass        = "BYPASS"
	CapabilityKnowledge     = "KNOWLEDGE"
	CapabilitySettingsAdmin = "SETTINGS"
)

// SystemUserID is the id of the internal user used for cache access.
const SystemUserID = "6a4b11e1-90ca-4e42-ba42-db7bc7f7d505"

// User is the identity a match is evaluated for.
type User struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Capabilities    []string `json:"capabilities,omitempty"`
	AllowedMarkings []string `json:"allowed_markings,omitempty"`
	Organizations   []string `json:"organizations,omitempty"`
}

// SystemUser returns the internal user that bypasses access control.
func SystemUser() *User {
	return &User{
		ID:           SystemUserID,
		Name:         "SYSTEM",
		Capabilities: []string{CapabilityBypass},
	}
}

// HasCapability returns true if the user holds the capability or BYPASS.
func (u *User) HasCapability(capability string) bool {
	if u == nil {
		return false
	}
	for _, c := range u.Capabilities {
		if c == capability || c == CapabilityBypass {
			return true
		}
	}
	return false
}

// IsBypass returns true if the user ignores access restrictions.
func (u *User) IsBypass() bool {
	return u.HasCapability(CapabilityBypass)
}

// CanSeeMarking returns true if the marking is in the user's allowed set.
func (u *User) CanSeeMarking(markingID string) bool {
	if u == nil {
		return false
	}
	for _, m := range u.AllowedMarkings {
		if m == markingID {
			return true
		}
	}
	return false
}

// BelongsToAny returns true if the user is a member of one of the organizations.
func (u *User) BelongsToAny(organizationIDs []string) bool {
	if u == nil {
		return false
	}
	for _, want := range organizationIDs {
		for _, org := range u.Organizations {
			if org == want {
				return true
			}
		}
	}
	return false
}
