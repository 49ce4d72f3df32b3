package schema

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// scalarAliases maps SDL scalar names onto our ScalarType enumeration.
// "ID" is kept as an alias of "UID" per §3's "primary key field named id of
// type UID (a 32-byte opaque identifier)" and §9's legacy-integer-ID note.
var scalarAliases = map[string]ScalarType{
	"ID": ScalarID, "UID": ScalarUID, "Address": ScalarAddress,
	"AssetId": ScalarAssetID, "ContractId": ScalarContractID,
	"Bytes4": ScalarBytes4, "Bytes8": ScalarBytes8, "Bytes32": ScalarBytes32, "Bytes64": ScalarBytes64,
	"Bytes": ScalarBytes, "String": ScalarString, "Boolean": ScalarBoolean,
	"I8": ScalarI8, "I32": ScalarI32, "I64": ScalarI64, "I128": ScalarI128,
	"U8": ScalarU8, "U32": ScalarU32, "U64": ScalarU64, "U128": ScalarU128,
	"Json": ScalarJSON, "HexString": ScalarHexString, "Blob": ScalarBlob, "Identity": ScalarIdentity,
}

// Document is the raw parse of a user GraphQL SDL document, before foreign
// keys/join tables/indices are derived (that happens in Build).
type Document struct {
	Entities []*Entity
	Enums    map[string][]string
	Unions   map[string][]string // union name -> member entity names
}

// Parse parses raw GraphQL SDL into the set of entity definitions the rest of
// the Schema Model builds on. It uses the non-validating parser.ParseSchema
// rather than gqlparser.LoadSchema, since a user's entity schema has no
// Query/Mutation root type for the GraphQL-spec validator to anchor on.
func Parse(name, sdl string) (*Document, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, NewSchemaError("parse", fmt.Sprintf("invalid GraphQL SDL: %v", err))
	}

	out := &Document{Enums: map[string][]string{}, Unions: map[string][]string{}}
	for _, def := range doc.Definitions {
		if def.Kind == ast.Enum {
			vals := make([]string, 0, len(def.EnumValues))
			for _, v := range def.EnumValues {
				vals = append(vals, v.Name)
			}
			out.Enums[def.Name] = vals
		}
	}
	for _, def := range doc.Definitions {
		if def.Kind == ast.Union {
			members := make([]string, 0, len(def.Types))
			members = append(members, def.Types...)
			out.Unions[def.Name] = members
		}
	}

	for _, def := range doc.Definitions {
		if def.Kind != ast.Object {
			continue
		}
		if IsReserved(def.Name) {
			return nil, NewSchemaError(def.Name, fmt.Sprintf("%q redefines a reserved type name", def.Name))
		}
		ent := &Entity{
			Name:    def.Name,
			Virtual: def.Directives.ForName("virtual") != nil,
		}
		for _, fd := range def.Fields {
			f, err := parseField(ent.Name, fd, out.Enums)
			if err != nil {
				return nil, err
			}
			ent.Fields = append(ent.Fields, f)
		}
		out.Entities = append(out.Entities, ent)
	}
	return out, nil
}

func parseField(entityName string, fd *ast.FieldDefinition, enums map[string][]string) (Field, error) {
	f := Field{Name: fd.Name}

	t := fd.Type
	if t.Elem != nil {
		f.List = true
		if t.Elem.Elem != nil {
			return Field{}, NewSchemaError(entityName, fmt.Sprintf("field %q: nested lists are not supported", fd.Name))
		}
		f.Required = t.NonNull
		t = t.Elem
	}
	f.Required = f.Required || t.NonNull
	// For list fields, presence-required tracks the inner element's nullability
	// (e.g. [T!]! requires both the list and its elements be non-null); the
	// outer list's own non-null-ness is folded into f.Required above already
	// when the field itself is scalar-list or list-of-entity.
	required := t.NonNull

	named := t.NamedType
	if scalar, ok := scalarAliases[named]; ok {
		f.Type = scalar
		f.Required = required || f.List && f.Required
		if named == "ID" && fd.Name != "id" {
			// ID-typed non-primary fields are legal (e.g. an external ID column).
		}
	} else if vals, ok := enums[named]; ok {
		f.Type = ScalarEnum
		f.EnumName = named
		f.EnumValues = vals
		f.Required = required
	} else {
		// Reference to another entity type (resolved against the full entity
		// set by the caller once every Entity is known).
		f.IsReference = true
		f.Entity = named
		f.Required = required
		f.ListReference = f.List
	}

	if fd.Name == "id" {
		if f.Type != ScalarID && f.Type != ScalarUID {
			return Field{}, NewSchemaError(entityName, "field \"id\" must have type ID! or UID!")
		}
		f.Required = true
	}

	if d := fd.Directives.ForName("indexed"); d != nil {
		f.Indexed = true
		f.IndexKind = IndexBTree
		if arg := d.Arguments.ForName("kind"); arg != nil && arg.Value != nil && arg.Value.Raw == "hash" {
			f.IndexKind = IndexHash
		}
	}
	if fd.Directives.ForName("unique") != nil {
		f.Unique = true
	}
	if d := fd.Directives.ForName("join"); d != nil {
		if arg := d.Arguments.ForName("on"); arg != nil && arg.Value != nil {
			f.JoinOn = arg.Value.Raw
		}
	}
	return f, nil
}
