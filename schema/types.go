package schema

// ScalarType enumerates every non-entity field type a schema may declare (§3 Field).
type ScalarType string

const (
	ScalarID         ScalarType = "ID" // alias of UID
	ScalarUID        ScalarType = "UID"
	ScalarAddress    ScalarType = "Address"
	ScalarAssetID    ScalarType = "AssetId"
	ScalarContractID ScalarType = "ContractId"
	ScalarBytes4     ScalarType = "Bytes4"
	ScalarBytes8     ScalarType = "Bytes8"
	ScalarBytes32    ScalarType = "Bytes32"
	ScalarBytes64    ScalarType = "Bytes64"
	ScalarBytes      ScalarType = "Bytes"
	ScalarString     ScalarType = "String"
	ScalarBoolean    ScalarType = "Boolean"
	ScalarI8         ScalarType = "I8"
	ScalarI32        ScalarType = "I32"
	ScalarI64        ScalarType = "I64"
	ScalarI128       ScalarType = "I128"
	ScalarU8         ScalarType = "U8"
	ScalarU32        ScalarType = "U32"
	ScalarU64        ScalarType = "U64"
	ScalarU128       ScalarType = "U128"
	ScalarJSON       ScalarType = "Json"
	ScalarHexString  ScalarType = "HexString"
	ScalarBlob       ScalarType = "Blob"
	ScalarIdentity   ScalarType = "Identity"
	ScalarEnum       ScalarType = "Enum" // concrete enum name carried in Field.EnumName
)

// reservedTypeNames holds every scalar and Velox primitive name, which a
// user schema may not redefine as an entity or enum (validation rule 1).
var reservedTypeNames = func() map[string]bool {
	m := map[string]bool{
		"ID": true, "String": true, "Boolean": true, "Int": true, "Float": true,
	}
	for _, s := range []ScalarType{
		ScalarID, ScalarUID, ScalarAddress, ScalarAssetID, ScalarContractID,
		ScalarBytes4, ScalarBytes8, ScalarBytes32, ScalarBytes64, ScalarBytes,
		ScalarString, ScalarBoolean, ScalarI8, ScalarI32, ScalarI64, ScalarI128,
		ScalarU8, ScalarU32, ScalarU64, ScalarU128, ScalarJSON, ScalarHexString,
		ScalarBlob, ScalarIdentity,
	} {
		m[string(s)] = true
	}
	return m
}()

// IsReserved reports whether name is a reserved scalar/primitive type name.
func IsReserved(name string) bool { return reservedTypeNames[name] }

// Ordered reports whether comparison operators (gt/gte/lt/lte) are legal for
// this scalar type, used by the Query Planner's filter argument validation (§4.8).
func (s ScalarType) Ordered() bool {
	switch s {
	case ScalarI8, ScalarI32, ScalarI64, ScalarI128,
		ScalarU8, ScalarU32, ScalarU64, ScalarU128,
		ScalarString, ScalarBoolean:
		return true
	default:
		return false
	}
}

// OnDelete/OnUpdate referential actions (§4.1).
type RefAction string

const (
	NoAction   RefAction = "NO ACTION"
	Cascade    RefAction = "CASCADE"
	SetNull    RefAction = "SET NULL"
	Restrict   RefAction = "RESTRICT"
	SetDefault RefAction = "SET DEFAULT"
)

// IndexKind is the physical index algorithm (§4.1).
type IndexKind string

const (
	IndexBTree IndexKind = "btree"
	IndexHash  IndexKind = "hash"
)

// Field is a typed attribute of an Entity (§3 Field).
type Field struct {
	Name       string
	Type       ScalarType
	EnumName   string // populated when Type == ScalarEnum
	EnumValues []string
	Required   bool
	List       bool // true for scalar list fields, e.g. [String!]
	Indexed    bool
	Unique     bool
	IndexKind  IndexKind

	// Reference fields (Type is unset; Entity is the referent's name).
	IsReference   bool
	Entity        string // referent entity name
	JoinOn        string // @join(on: field) target field name on the referent; "" means direct FK to id
	ListReference bool   // true for [T!]! many-to-many fields
	Virtual       bool   // not set by Parse or Build; callers check the referent's Entity.Virtual instead
}

// ColumnName returns the snake_case SQL column name for this field.
func (f Field) ColumnName() string { return ToSnakeCase(f.Name) }

// Entity is a named record type declared in the schema (§3 Entity).
type Entity struct {
	Name    string
	Virtual bool // @virtual: embedded as JSON in its parent row, no PK column, never a query root
	Fields  []Field
	TypeID  uint64
}

// Field looks up a field by GraphQL name.
func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// TableName returns the pluralized snake_case table name for a non-virtual entity.
func (e *Entity) TableName() string { return TableName(e.Name) }

// ForeignKey describes a single direct or @join-resolved reference (§4.1).
type ForeignKey struct {
	Table        string
	Column       string
	RefTable     string
	RefColumn    string
	RefColumnTy  ScalarType
	OnDelete     RefAction
	OnUpdate     RefAction
	Nullable     bool // parent field nullable => LEFT JOIN in query planning, no FK enforcement gap otherwise
}

// JoinTable materializes a many-to-many field (§3 List-valued reference, §4.1).
type JoinTable struct {
	Name        string
	ParentTable string
	ParentCol   string // {parent}_{parent_fk}
	ChildTable  string
	ChildCol    string // {child}_{child_fk}
	FieldName   string // originating field name, for diagnostics
}

// Index is a column index derived from @indexed/@unique (§4.1).
type Index struct {
	Table   string
	Name    string
	Columns []string
	Unique  bool
	Kind    IndexKind
}

// MaxForeignKeyListFields bounds many-to-many relations per entity (§3).
const MaxForeignKeyListFields = 10
