package query

import (
	"fmt"
	"strings"

	"github.com/99designs/gqlgen/graphql/introspection"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/syssam/indexerd/schema"
)

// scalarGraphQLNames maps a schema.ScalarType onto the GraphQL scalar name
// that BuildSDL declares for it. "ID" and "Boolean"/"String" are GraphQL
// built-ins; everything else is a custom scalar synthesized for
// introspection purposes (§4.8 filter operator typing needs the same names).
var scalarGraphQLNames = map[schema.ScalarType]string{
	schema.ScalarID:         "ID",
	schema.ScalarUID:        "ID",
	schema.ScalarAddress:    "Address",
	schema.ScalarAssetID:    "AssetId",
	schema.ScalarContractID: "ContractId",
	schema.ScalarBytes4:     "Bytes4",
	schema.ScalarBytes8:     "Bytes8",
	schema.ScalarBytes32:    "Bytes32",
	schema.ScalarBytes64:    "Bytes64",
	schema.ScalarBytes:      "Bytes",
	schema.ScalarString:     "String",
	schema.ScalarBoolean:    "Boolean",
	schema.ScalarI8:         "I8",
	schema.ScalarI32:        "I32",
	schema.ScalarI64:        "I64",
	schema.ScalarI128:       "I128",
	schema.ScalarU8:         "U8",
	schema.ScalarU32:        "U32",
	schema.ScalarU64:        "U64",
	schema.ScalarU128:       "U128",
	schema.ScalarJSON:       "Json",
	schema.ScalarHexString:  "HexString",
	schema.ScalarBlob:       "Blob",
	schema.ScalarIdentity:   "Identity",
}

var builtinScalars = map[string]bool{"ID": true, "String": true, "Boolean": true, "Int": true, "Float": true}

// BuildSDL synthesizes the GraphQL SDL text for one Schema Model's query
// surface: an object type per entity (virtual entities embed the same way
// they do at the storage layer, as a nested object type with no root
// field), a Connection/Edge pair per non-virtual entity, and a Query root
// exposing the §4.8 root-object and root-list fields. schema.Model retains
// the resolved entity graph but not the manifest's original SDL text, so
// introspection rebuilds a schema document from the model rather than
// threading the raw source through the executor.
func BuildSDL(m *schema.Model) string {
	var b strings.Builder

	scalarsUsed := map[string]bool{}
	for _, e := range m.Entities {
		for _, f := range e.Fields {
			if f.IsReference || f.Type == schema.ScalarEnum {
				continue
			}
			if name, ok := scalarGraphQLNames[f.Type]; ok && !builtinScalars[name] {
				scalarsUsed[name] = true
			}
		}
	}
	for name := range scalarsUsed {
		fmt.Fprintf(&b, "scalar %s\n", name)
	}
	b.WriteString("\n")

	enumsEmitted := map[string]bool{}
	for _, e := range m.Entities {
		for _, f := range e.Fields {
			if f.Type == schema.ScalarEnum && f.EnumName != "" && !enumsEmitted[f.EnumName] {
				enumsEmitted[f.EnumName] = true
				fmt.Fprintf(&b, "enum %s {\n", f.EnumName)
				for _, v := range f.EnumValues {
					fmt.Fprintf(&b, "  %s\n", v)
				}
				b.WriteString("}\n\n")
			}
		}
	}

	for _, e := range m.Entities {
		fmt.Fprintf(&b, "type %s {\n", e.Name)
		for _, f := range e.Fields {
			fmt.Fprintf(&b, "  %s: %s\n", f.Name, fieldGraphQLType(f))
		}
		b.WriteString("}\n\n")
	}

	for _, e := range m.Entities {
		if e.Virtual {
			continue
		}
		// Every root-list field returns a Connection, so each non-virtual
		// entity needs its pair exactly once.
		writeConnectionTypes(&b, e.Name, schema.Field{Entity: e.Name})
	}

	b.WriteString("type Query {\n")
	for _, e := range m.Entities {
		if e.Virtual {
			continue
		}
		fmt.Fprintf(&b, "  %s(id: ID!): %s\n", schema.RootObjectFieldName(e.Name), e.Name)
		fmt.Fprintf(&b, "  %s(filter: %sFilter, order: %sOrder, first: Int, after: String, last: Int, before: String): %sConnection!\n",
			schema.RootListFieldName(e.Name), e.Name, e.Name, e.Name)
	}
	b.WriteString("}\n")

	for _, e := range m.Entities {
		if e.Virtual {
			continue
		}
		writeFilterAndOrderInputs(&b, e)
	}

	return b.String()
}

func fieldGraphQLType(f schema.Field) string {
	var base string
	switch {
	case f.IsReference:
		base = f.Entity
	case f.Type == schema.ScalarEnum:
		base = f.EnumName
	default:
		name, ok := scalarGraphQLNames[f.Type]
		if !ok {
			name = string(f.Type)
		}
		base = name
	}
	if f.List || f.ListReference {
		base = "[" + base + "!]"
	}
	if f.Required {
		base += "!"
	}
	return base
}

func writeConnectionTypes(b *strings.Builder, parent string, f schema.Field) {
	fmt.Fprintf(b, "type %sEdge {\n  node: %s!\n  cursor: String!\n}\n\n", f.Entity, f.Entity)
	fmt.Fprintf(b, "type %sConnection {\n  nodes: [%s!]!\n  edges: [%sEdge!]!\n  pageInfo: PageInfo!\n  totalCount: Int!\n}\n\n", f.Entity, f.Entity, f.Entity)
}

// writeFilterAndOrderInputs emits the filter and order input shapes for one
// entity's scalar fields. In the filter input each field is typed by its own
// scalar (or enum); the per-field operator objects parseFilter accepts
// ({eq: ...}, {in: [...]}, {gt: ...}, ...) are not modeled, so introspection
// does not show them. The planner's parseFilter/planArguments logic
// (filter.go, planner.go) is what decides what is accepted at runtime.
func writeFilterAndOrderInputs(b *strings.Builder, e *schema.Entity) {
	fmt.Fprintf(b, "input %sFilter {\n", e.Name)
	b.WriteString("  and: [" + e.Name + "Filter!]\n")
	b.WriteString("  or: [" + e.Name + "Filter!]\n")
	b.WriteString("  not: " + e.Name + "Filter\n")
	for _, f := range e.Fields {
		if f.IsReference {
			continue
		}
		name, ok := scalarGraphQLNames[f.Type]
		if !ok {
			name = string(f.Type)
		}
		if f.Type == schema.ScalarEnum {
			name = f.EnumName
		}
		fmt.Fprintf(b, "  %s: %s\n", f.Name, name)
	}
	b.WriteString("}\n\n")

	fmt.Fprintf(b, "input %sOrder {\n", e.Name)
	for _, f := range e.Fields {
		if f.IsReference {
			continue
		}
		fmt.Fprintf(b, "  %s: OrderDirection\n", f.Name)
	}
	b.WriteString("}\n\n")
}

// LoadIntrospectionSchema synthesizes and parses one indexer's SDL into a
// fully resolved *ast.Schema, merging in the standard introspection types
// and directives (§4.8 IntrospectionQuery) via gqlparser's validator.
func LoadIntrospectionSchema(m *schema.Model) (*ast.Schema, error) {
	sdl := preludeSDL + BuildSDL(m)
	return validator.LoadSchema(validator.Prelude, &ast.Source{Name: m.Namespace + "/" + m.Identifier, Input: sdl})
}

const preludeSDL = `
enum OrderDirection {
  asc
  desc
}

type PageInfo {
  hasNextPage: Boolean!
  hasPreviousPage: Boolean!
  startCursor: String
  endCursor: String
}
`

// Introspector answers __schema/__type selections for one indexer's schema,
// wrapping the resolved *ast.Schema with gqlgen's introspection package
// rather than hand-rolling the introspection type graph (§4.9 IntrospectionQuery
// is served from the in-memory dynamic schema, not the relational store).
type Introspector struct {
	schema *introspection.Schema
}

// NewIntrospector builds an Introspector for one indexer's Schema Model.
func NewIntrospector(m *schema.Model) (*Introspector, error) {
	s, err := LoadIntrospectionSchema(m)
	if err != nil {
		return nil, fmt.Errorf("query: building introspection schema: %w", err)
	}
	return &Introspector{schema: introspection.WrapSchema(s)}, nil
}

// Schema answers the `__schema` root field.
func (in *Introspector) Schema() *introspection.Schema {
	return in.schema
}

// Type answers the `__type(name: ...)` root field, returning nil if name is
// not declared in this indexer's schema.
func (in *Introspector) Type(name string) *introspection.Type {
	for _, t := range in.schema.Types() {
		if t.Name == name {
			return t
		}
	}
	return nil
}
