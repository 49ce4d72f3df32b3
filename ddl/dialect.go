package ddl

// Dialect identifies which of the two supported backends (§2, §4.4, §9) a
// statement sequence targets.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Valid reports whether d is a supported dialect.
func (d Dialect) Valid() bool { return d == Postgres || d == SQLite }
