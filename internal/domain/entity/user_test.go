package entity

import "testing"

func TestUser_Capabilities(t *testing.T) {
	analyst := &User{ID: "u1", Capabilities: []string{CapabilityKnowledge}}

	if !analyst.HasCapability(CapabilityKnowledge) {
		t.Error("HasCapability(KNOWLEDGE) = false, want true")
	}
	if analyst.HasCapability(CapabilitySettingsAdmin) {
		t.Error("HasCapability(SETTINGS) = true, want false")
	}
	if analyst.IsBypass() {
		t.Error("IsBypass() = true for analyst")
	}

	system := SystemUser()
	if !system.IsBypass() || !system.HasCapability(CapabilitySettingsAdmin) {
		t.Error("system user should hold every capability")
	}

	var nobody *User
	if nobody.HasCapability(CapabilityKnowledge) || nobody.CanSeeMarking("m") || nobody.BelongsToAny([]string{"o"}) {
		t.Error("nil user should have no rights")
	}
}

func TestUser_MarkingsAndOrganizations(t *testing.T) {
	user := &User{ID: "u1", AllowedMarkings: []string{"m1"}, Organizations: []string{"o1", "o2"}}

	if !user.CanSeeMarking("m1") || user.CanSeeMarking("m2") {
		t.Error("CanSeeMarking() mismatch")
	}
	if !user.BelongsToAny([]string{"o3", "o2"}) {
		t.Error("BelongsToAny() = false, want true")
	}
	if user.BelongsToAny(nil) {
		t.Error("BelongsToAny(nil) = true, want false")
	}
}
