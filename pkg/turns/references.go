package turns

import (
	"sort"

	"github.com/agentpipe/orchestrator/pkg/types"
)

// ReferenceCollection wraps a session's References slice with the sorted
// view and TTL mutation operations the loop applies once per iteration.
type ReferenceCollection struct {
	refs       []types.Reference
	defaultTTL int
}

func NewReferenceCollection(refs []types.Reference, defaultTTL int) *ReferenceCollection {
	return &ReferenceCollection{refs: refs, defaultTTL: defaultTTL}
}

func (r *ReferenceCollection) effectiveTTL(e types.Reference) int {
	if e.TTL == nil {
		return r.defaultTTL
	}
	return *e.TTL
}

// Sorted returns references ordered: active entries first by descending
// TTL, with a nil TTL compared as the collection default, then inactive
// (disabled or expired) entries last. SliceStable keeps ties in insertion
// order.
func (r *ReferenceCollection) Sorted() []types.Reference {
	out := make([]types.Reference, len(r.refs))
	copy(out, r.refs)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].Active(), out[j].Active()
		if ai != aj {
			return ai // active entries sort before inactive
		}
		if !ai {
			return false // both disabled/expired: stable order
		}
		return r.effectiveTTL(out[i]) > r.effectiveTTL(out[j])
	})
	return out
}

// Add is a no-op if path is already present, otherwise appends a new
// reference.
func (r *ReferenceCollection) Add(path string, ttl *int, persist bool) {
	for _, e := range r.refs {
		if e.Path == path {
			return
		}
	}
	r.refs = append(r.refs, types.Reference{Path: path, TTL: ttl, Persist: persist})
}

// UpdateTtl sets a reference's TTL. newTTL<=0 disables it; a positive
// value clears any prior disabled state.
func (r *ReferenceCollection) UpdateTtl(path string, newTTL int) {
	for i := range r.refs {
		if r.refs[i].Path != path {
			continue
		}
		ttl := newTTL
		r.refs[i].TTL = &ttl
		r.refs[i].Disabled = newTTL <= 0
		return
	}
}

// DecrementAllTtl subtracts 1 from every non-persistent, non-disabled
// reference's TTL (using the collection default when nil), disabling any
// that reach zero.
func (r *ReferenceCollection) DecrementAllTtl() {
	for i := range r.refs {
		e := &r.refs[i]
		if e.Persist || e.Disabled {
			continue
		}
		cur := r.effectiveTTL(*e)
		cur--
		e.TTL = &cur
		if cur <= 0 {
			e.Disabled = true
		}
	}
}

func (r *ReferenceCollection) ToggleDisabled(path string, disabled bool) {
	for i := range r.refs {
		if r.refs[i].Path == path {
			r.refs[i].Disabled = disabled
			return
		}
	}
}

func (r *ReferenceCollection) UpdatePersist(path string, persist bool) {
	for i := range r.refs {
		if r.refs[i].Path == path {
			r.refs[i].Persist = persist
			return
		}
	}
}

func (r *ReferenceCollection) Entries() []types.Reference { return r.refs }
