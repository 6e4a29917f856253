package stixfilter

import (
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// Activity event filter keys.
const (
	KeyEventType           = "event_type"
	KeyEventScope          = "event_scope"
	KeyMembersUser         = "members_user"
	KeyMembersGroup        = "members_group"
	KeyMembersOrganization = "members_organization"
)

// EventTesters is the registry used to match activity events.
var EventTesters = TesterRegistry[*entity.ActivityEvent]{
	KeyEventType:           eventStrings(true, func(e *entity.ActivityEvent) []string { return single(string(e.Type)) }),
	KeyEventScope:          eventStrings(true, func(e *entity.ActivityEvent) []string { return single(e.EventScope) }),
	KeyMembersUser:         eventStrings(false, func(e *entity.ActivityEvent) []string { return single(e.Origin.UserID) }),
	KeyMembersGroup:        eventStrings(false, func(e *entity.ActivityEvent) []string { return e.Origin.GroupIDs }),
	KeyMembersOrganization: eventStrings(false, func(e *entity.ActivityEvent) []string { return e.Origin.OrganizationIDs }),
}

func eventStrings(fold bool, read func(*entity.ActivityEvent) []string) Tester[*entity.ActivityEvent] {
	return func(e *entity.ActivityEvent, filter valueobject.Filter) bool {
		var candidates []string
		if e != nil {
			candidates = read(e)
		}
		if fold {
			return testStringFilterFold(filter, candidates)
		}
		return testStringFilter(filter, candidates)
	}
}
