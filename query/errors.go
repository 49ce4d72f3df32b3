package query

import (
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/syssam/indexerd"
)

// newQueryError wraps a planning or execution failure as both an
// indexerd.CoreError (so the rest of the core can classify it via
// indexerd.IsQuery) and a *gqlerror.Error (the shape the HTTP API boundary
// serializes, per §7's Query error taxonomy and gqlgen's own error
// convention).
func newQueryError(rule, message string) error {
	return &queryError{
		core: indexerd.NewError(indexerd.KindQuery, "query."+rule, message, nil),
		gql:  gqlerror.Errorf("%s", message),
	}
}

type queryError struct {
	core *indexerd.CoreError
	gql  *gqlerror.Error
}

func (e *queryError) Error() string { return e.core.Error() }
func (e *queryError) Unwrap() error { return e.core }

// GQLError extracts the *gqlerror.Error shape for API-boundary serialization.
func GQLError(err error) (*gqlerror.Error, bool) {
	qe, ok := err.(*queryError)
	if !ok {
		return nil, false
	}
	return qe.gql, true
}

// Failure-mode constructors (§4.8 "Failure modes").
func errUnknownType(name string) error {
	return newQueryError("unknown-type", "unknown type \""+name+"\"")
}
func errUnknownField(typeName, field string) error {
	return newQueryError("unknown-field", "unknown field \""+field+"\" on type \""+typeName+"\"")
}
func errUnknownArgument(field, arg string) error {
	return newQueryError("unknown-argument", "unknown argument \""+arg+"\" on field \""+field+"\"")
}
func errUnsupportedOperator(op string) error {
	return newQueryError("unsupported-operator", "unsupported filter operator \""+op+"\"")
}
func errUndefinedVariable(name string) error {
	return newQueryError("undefined-variable", "undefined variable \"$"+name+"\"")
}
func errVirtualRoot(name string) error {
	return newQueryError("virtual-root", "cannot query virtual entity \""+name+"\" at the root")
}
func errRootMissingID(name string) error {
	return newQueryError("root-missing-id", "root object query on \""+name+"\" requires an \"id\" argument")
}
func errCycle(path string) error {
	return newQueryError("reference-cycle", "query selection forms a cycle across reference fields: "+path)
}
func errNegationNotBoolean(field string) error {
	return newQueryError("invalid-negation", "\"not\" may only wrap a predicate, not a direct comparison on non-boolean field \""+field+"\"")
}
func errMissingOrder(field string) error {
	return newQueryError("missing-order", "paginated selection \""+field+"\" requires an \"order\" argument with at least one key")
}
func errBothDirections(field string) error {
	return newQueryError("both-pagination-directions", "selection \""+field+"\" specifies both first/after and last/before")
}
func errNoDirection(field string) error {
	return newQueryError("no-pagination-direction", "connection selection \""+field+"\" requires first/after or last/before")
}
