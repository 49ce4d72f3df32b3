package schema

import "github.com/syssam/indexerd"

// NewSchemaError builds a Schema-kind error (§7): a validation rule
// violation, surfaced at register time, which rejects the bundle with no
// state change.
func NewSchemaError(subject, message string) *indexerd.CoreError {
	return indexerd.NewError(indexerd.KindSchema, "schema."+subject, message, nil)
}
