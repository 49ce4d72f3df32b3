package manifest

import "path/filepath"

// ResolvePath resolves a manifest-relative path (graphql_schema, abi,
// module.wasm, module.native) against the directory containing the
// manifest file itself, leaving an already-absolute path untouched.
func ResolvePath(manifestPath, relPath string) string {
	if relPath == "" || filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(filepath.Dir(manifestPath), relPath)
}
