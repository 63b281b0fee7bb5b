package depot

import (
	"strconv"
	"strings"

	"github.com/TheBitDrifter/mask"
)

// Query accumulates the component terms of a filtered view. Terms compose
// freely; Build validates them and produces an immutable QueryPlan.
type Query struct {
	reads    []ComponentID
	writes   []ComponentID
	with     []ComponentID
	without  []ComponentID
	optional []ComponentID
	changed  []ComponentID
	added    []ComponentID
}

func newQuery() *Query { return &Query{} }

func refIDs(refs []ComponentRef) []ComponentID {
	ids := make([]ComponentID, len(refs))
	for i, r := range refs {
		ids[i] = r.ComponentID()
	}
	return ids
}

// Read declares immutable access to the kinds; matched rows must carry them.
func (q *Query) Read(refs ...ComponentRef) *Query {
	q.reads = append(q.reads, refIDs(refs)...)
	return q
}

// Write declares mutable access to the kinds; matched rows must carry them.
func (q *Query) Write(refs ...ComponentRef) *Query {
	q.writes = append(q.writes, refIDs(refs)...)
	return q
}

// With requires the kinds to be present without accessing their data.
func (q *Query) With(refs ...ComponentRef) *Query {
	q.with = append(q.with, refIDs(refs)...)
	return q
}

// Without excludes rows carrying any of the kinds.
func (q *Query) Without(refs ...ComponentRef) *Query {
	q.without = append(q.without, refIDs(refs)...)
	return q
}

// Optional declares immutable access to kinds that may be absent; cursor
// fetches return nil for rows without them. Optional terms never narrow
// matching.
func (q *Query) Optional(refs ...ComponentRef) *Query {
	q.optional = append(q.optional, refIDs(refs)...)
	return q
}

// Changed requires the kinds to be present and their row value written
// since the cursor's baseline tick.
func (q *Query) Changed(refs ...ComponentRef) *Query {
	q.changed = append(q.changed, refIDs(refs)...)
	return q
}

// Added requires the kinds to be present and their row value inserted
// since the cursor's baseline tick.
func (q *Query) Added(refs ...ComponentRef) *Query {
	q.added = append(q.added, refIDs(refs)...)
	return q
}

type accessBits [MaxComponentTypes]bool

func (b *accessBits) mark(ids []ComponentID) {
	for _, id := range ids {
		b[id] = true
	}
}

// Build validates the accumulated terms into a QueryPlan. Declaring a kind
// writable twice, or both readable and writable, fails with an error
// wrapping ErrConflictingAccess: a single view may not alias mutable data.
func (q *Query) Build() (*QueryPlan, error) {
	var writable accessBits
	for _, id := range q.writes {
		if writable[id] {
			return nil, ComponentAccessError{Component: id}
		}
		writable[id] = true
	}
	for _, id := range q.reads {
		if writable[id] {
			return nil, ComponentAccessError{Component: id}
		}
	}
	// Optional is still an immutable fetch; it may not alias a write.
	for _, id := range q.optional {
		if writable[id] {
			return nil, ComponentAccessError{Component: id}
		}
	}

	plan := &QueryPlan{
		reads:    dedupe(q.reads),
		writes:   dedupe(q.writes),
		optional: dedupe(q.optional),
		changed:  dedupe(q.changed),
		added:    dedupe(q.added),
	}
	plan.readable.mark(plan.reads)
	plan.readable.mark(plan.writes)
	plan.readable.mark(plan.optional)
	plan.writable.mark(plan.writes)

	required := append(append([]ComponentID(nil), plan.reads...), plan.writes...)
	required = append(required, dedupe(q.with)...)
	// Change filters imply presence.
	required = append(required, plan.changed...)
	required = append(required, plan.added...)
	for _, id := range dedupe(required) {
		plan.include.Mark(uint32(id))
	}
	for _, id := range dedupe(q.without) {
		plan.exclude.Mark(uint32(id))
	}
	plan.signature = q.buildSignature()
	return plan, nil
}

func dedupe(ids []ComponentID) []ComponentID {
	var seen accessBits
	out := make([]ComponentID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (q *Query) buildSignature() string {
	var b strings.Builder
	appendTerm := func(tag string, ids []ComponentID) {
		b.WriteString(tag)
		for _, id := range ids {
			b.WriteString(strconv.FormatUint(uint64(id), 10))
			b.WriteByte(',')
		}
		b.WriteByte('|')
	}
	appendTerm("r:", q.reads)
	appendTerm("w:", q.writes)
	appendTerm("p:", q.with)
	appendTerm("n:", q.without)
	appendTerm("o:", q.optional)
	appendTerm("c:", q.changed)
	appendTerm("a:", q.added)
	return b.String()
}

// QueryPlan is a validated, immutable query. Plans are storage-independent
// and safe to share across goroutines; per-iteration state lives in the
// Cursor.
type QueryPlan struct {
	reads     []ComponentID
	writes    []ComponentID
	optional  []ComponentID
	changed   []ComponentID
	added     []ComponentID
	include   mask.Mask
	exclude   mask.Mask
	readable  accessBits
	writable  accessBits
	signature string
}

// Signature is a canonical key for the plan's terms, used by the match
// cache.
func (p *QueryPlan) Signature() string { return p.signature }

// Access returns the component access set the plan implies, for scheduler
// conflict analysis.
func (p *QueryPlan) Access() AccessSet {
	return AccessSet{
		Reads:  append(append([]ComponentID(nil), p.reads...), p.optional...),
		Writes: append([]ComponentID(nil), p.writes...),
	}
}

func (p *QueryPlan) canRead(id ComponentID) bool  { return p.readable[id] }
func (p *QueryPlan) canWrite(id ComponentID) bool { return p.writable[id] }

func (p *QueryPlan) matchesArchetype(a *archetype) bool {
	m := a.Mask()
	return m.ContainsAll(p.include) && m.ContainsNone(p.exclude)
}

// matchArchetypes resolves the plan against the storage's archetypes,
// serving from the version-checked match cache when possible.
func (p *QueryPlan) matchArchetypes(sto *Storage) []int {
	version := sto.archetypes.version
	if matched, ok := sto.matchCache.lookup(p.signature, version); ok {
		return matched
	}
	matched := make([]int, 0, 8)
	for idx, arch := range sto.archetypes.list {
		if p.matchesArchetype(arch) {
			matched = append(matched, idx)
		}
	}
	sto.matchCache.store(p.signature, version, matched)
	return matched
}
