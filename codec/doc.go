// Package codec is the Row Codec (§4.3): it serializes and deserializes a
// typed column vector (a Row) between wire bytes (crossing the host/module
// boundary and the object column in storage) and SQL parameter bindings. A
// Row never participates in raw SQL text; every value crosses the Database
// Adapter boundary as a bound parameter (§4.3 "does not inline values into
// SQL text").
package codec
