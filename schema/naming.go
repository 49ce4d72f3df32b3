package schema

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var snakeCaser = cases.Lower(language.Und)

// ToSnakeCase normalizes a GraphQL camelCase identifier to a SQL-friendly
// snake_case one, e.g. "createdAt" -> "created_at". Runs of uppercase
// letters (acronyms) are treated as a single word.
func ToSnakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || (nextLower && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return snakeCaser.String(b.String())
}

// TableName returns the pluralized, snake_case table name for an entity, e.g.
// "Author" -> "authors", "Category" -> "categories".
func TableName(entityName string) string {
	return inflect.Pluralize(ToSnakeCase(entityName))
}

// JoinTableName returns the deterministic name {parent}s_{child}s for a
// many-to-many relation (§4.1). parent/child are entity names, already
// pluralized into table names before concatenation collapses to a single
// join identifier, e.g. Author/Book -> "authors_books".
func JoinTableName(parentEntity, childEntity string) string {
	return TableName(parentEntity) + "_" + TableName(childEntity)
}

// ForeignKeyColumn returns fieldName in snake_case with an "_id" suffix, e.g.
// a field "author" becomes "author_id". Build does not use it: a reference
// field's FK column is the field's own ColumnName(), with no suffix.
func ForeignKeyColumn(fieldName string) string {
	return ToSnakeCase(fieldName) + "_id"
}

// RootObjectFieldName returns the GraphQL root field name for fetching a
// single entity by id, e.g. "Block" -> "block" (§4.8 root selections).
func RootObjectFieldName(entityName string) string {
	return lowerFirst(entityName)
}

// RootListFieldName returns the GraphQL root field name for a paginated
// collection of an entity, e.g. "Block" -> "blocks", "Category" -> "categories".
func RootListFieldName(entityName string) string {
	return lowerFirst(inflect.Pluralize(entityName))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
