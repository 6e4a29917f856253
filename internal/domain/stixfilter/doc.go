// Package stixfilter decides whether a live subject, a STIX object from the
// change stream or an activity-log event, satisfies a stored filter group.
//
// A match runs in four steps: the filter group is validated against the
// tester registry of the subject kind, filter values are resolved from
// internal ids to the literals observed on the subject, and the resolved
// tree is evaluated by TestFilterGroup, which dispatches every filter to the
// tester registered for its key. STIX matches are gated by an access check
// first and never match an object the user cannot see.
package stixfilter
