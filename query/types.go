package query

import "github.com/syssam/indexerd/schema"

// SortKey is one field+direction pair from an `order` argument (§4.8 step 3).
type SortKey struct {
	Field string
	Desc  bool
}

// Pagination carries the resolved first/after xor last/before arguments for
// one connection selection (§4.8 step 3).
type Pagination struct {
	First  *int
	After  *string // opaque encoded cursor as given by the client, decoded by Executor
	Last   *int
	Before *string
}

// Forward reports whether this is a first/after (forward) page, as opposed
// to last/before (backward).
func (p Pagination) Forward() bool { return p.First != nil || p.After != nil }

// FieldSelection is a single leaf or branch in a resolved selection set.
// Exactly one of Scalar/Join/Connection/Virtual describes what the field resolves to.
type FieldSelection struct {
	ResponseKey string // GraphQL alias, or field name if unaliased
	Field       schema.Field

	IsScalar     bool
	IsJoin       bool // singular non-virtual reference, resolved as a SQL join
	IsConnection bool // list-reference (many-to-many), paginated
	IsVirtual    bool // singular reference into a @virtual entity, read from the embedded JSON column

	Entity *schema.Entity // populated for Join/Connection/Virtual selections

	Filter     *FilterExpr
	Order      []SortKey
	Pagination Pagination

	Children []FieldSelection // nested selection set (Join/Connection/Virtual only)
}

// SelectionPlan is one resolved top-level field of the query's root
// selection set (one field = one entity root query, §4.8).
type SelectionPlan struct {
	ResponseKey string
	Entity      *schema.Entity
	IsList      bool // true for a collection root (`blocks(...)`), false for a single-object root (`block(id: ...)`)
	RootID      string

	Filter     *FilterExpr
	Order      []SortKey
	Pagination Pagination
	Children   []FieldSelection
}

// OperationPlan is the Query Planner's full output for one operation (§4.8:
// "Output: one SQL statement per operation ... plus a result shaper").
type OperationPlan struct {
	OperationName string
	Selections    []SelectionPlan
	Introspection bool
}
