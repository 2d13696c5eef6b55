package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// Keyer builds cache keys. Implementations must be deterministic: equal
// inputs produce equal keys across processes.
type Keyer interface {
	// ResolveKey identifies a resolution result.
	ResolveKey(opts ResolveKeyOpts) string

	// TraceKey identifies a rendered trace of a resolution.
	TraceKey(resolveKey, format string) string
}

// ResolveKeyOpts are the inputs a resolution result depends on.
type ResolveKeyOpts struct {
	Mode       string   `json:"mode"`
	Specifier  string   `json:"specifier"`
	Parent     string   `json:"parent"`
	Conditions []string `json:"conditions,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
}

// DefaultKeyer hashes key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResolveKey implements [Keyer].
func (DefaultKeyer) ResolveKey(opts ResolveKeyOpts) string {
	h := sha256.New()
	writeField(h, opts.Mode)
	writeField(h, opts.Specifier)
	writeField(h, opts.Parent)
	writeList(h, opts.Conditions)
	writeList(h, opts.Extensions)
	return "resolve:" + hex.EncodeToString(h.Sum(nil))
}

// TraceKey implements [Keyer].
func (DefaultKeyer) TraceKey(resolveKey, format string) string {
	return "trace:" + strings.ToLower(format) + ":" + Hash([]byte(resolveKey))
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type byteWriter interface{ Write([]byte) (int, error) }

// writeField writes s length-prefixed, so that adjacent fields cannot run
// into each other ("ab"+"c" and "a"+"bc" hash differently).
func writeField(w byteWriter, s string) {
	var n [binary.MaxVarintLen64]byte
	w.Write(n[:binary.PutUvarint(n[:], uint64(len(s)))])
	w.Write([]byte(s))
}

// writeList writes a count followed by each item. A nil list and an empty
// list hash alike.
func writeList(w byteWriter, items []string) {
	var n [binary.MaxVarintLen64]byte
	w.Write(n[:binary.PutUvarint(n[:], uint64(len(items)))])
	for _, s := range items {
		writeField(w, s)
	}
}
