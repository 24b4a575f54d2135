// Package codec implements the binary encodings used inside a container:
// tagged attribute values, node records describing stored groups and
// datasets, and chunk payloads with optional compression and Fletcher-32
// checksums.
package codec
