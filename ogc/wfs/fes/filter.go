package fes

import "strings"

// ResourceID is the ID-operator variant: matches a feature by
// "<typename>.<id>" or by a bare id, per spec §3.
type ResourceID struct {
	RawID string
}

func (ResourceID) Tag() Tag { return Tag{FESNamespace, "ResourceId"} }

// TypeNameAndID splits "restaurant.42" into ("restaurant", "42"); if RawID
// carries no dot it returns ("", RawID).
func (r ResourceID) TypeNameAndID() (typeName, id string) {
	if idx := strings.LastIndexByte(r.RawID, '.'); idx >= 0 {
		return r.RawID[:idx], r.RawID[idx+1:]
	}
	return "", r.RawID
}

// Filter is a <fes:Filter>: either a predicate tree, or a list of
// ResourceIDs. Spec says these are mutually exclusive; we accept both being
// set as a convenience and let the compiler combine them with AND.
type Filter struct {
	Predicate   NonIdOperator
	ResourceIDs []ResourceID
}

func (f *Filter) IsEmpty() bool {
	return f == nil || (f.Predicate == nil && len(f.ResourceIDs) == 0)
}
