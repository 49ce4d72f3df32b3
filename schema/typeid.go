package schema

import (
	"crypto/sha256"
	"encoding/binary"
)

// TypeID computes the stable 64-bit type ID used to address an entity across
// the host/module boundary and in the database (§3 Entity): the first 8
// bytes of sha256(namespace ‖ "\x00" ‖ identifier ‖ "\x00" ‖ entity-name),
// big-endian. The NUL separators keep ("ab", "c") from colliding with ("a", "bc").
func TypeID(namespace, identifier, entityName string) uint64 {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(identifier))
	h.Write([]byte{0})
	h.Write([]byte(entityName))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// AssignTypeIDs computes and assigns TypeID on every non-virtual entity.
// Virtual entities have no addressable table and are left at zero.
func AssignTypeIDs(namespace, identifier string, entities []*Entity) {
	for _, e := range entities {
		if e.Virtual {
			continue
		}
		e.TypeID = TypeID(namespace, identifier, e.Name)
	}
}
