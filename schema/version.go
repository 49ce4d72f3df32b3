package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Version computes the schema-version (§3, §6): the hex SHA-256 of the
// canonicalized schema source. Canonicalization trims surrounding
// whitespace per line and drops blank lines so that formatting-only edits
// (re-indentation, trailing newline changes) do not mint a new version.
func Version(sdl string) string {
	lines := strings.Split(sdl, "\n")
	var kept []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if strings.TrimSpace(l) == "" {
			continue
		}
		kept = append(kept, l)
	}
	canon := strings.Join(kept, "\n")
	sum := sha256.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:])
}
