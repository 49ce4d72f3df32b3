package ddl

import (
	"fmt"
	"strings"

	"ariga.io/atlas/sql/migrate"
)

// WriteMigration persists an ordered statement sequence as a single
// versioned migration file inside dir, using ariga.io/atlas's migration
// directory abstraction. name becomes part of the generated filename
// (typically an indexer's namespace_identifier_schemaVersion).
func WriteMigration(dir migrate.Dir, name string, statements []Statement) error {
	var sb strings.Builder
	for _, st := range statements {
		sb.WriteString(st.SQL)
		sb.WriteString(";\n")
	}

	fname := fmt.Sprintf("%s.sql", name)
	return dir.WriteFile(fname, []byte(sb.String()))
}

// LocalDir opens (creating if absent) a local-filesystem migration
// directory rooted at path, for use with WriteMigration.
func LocalDir(path string) (*migrate.LocalDir, error) {
	return migrate.NewLocalDir(path)
}
