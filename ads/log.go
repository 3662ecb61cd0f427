package ads

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
)

// logger reports parse and serialization failures that are degraded
// rather than returned. It discards everything until SetLogger is called.
var logger = zerolog.Nop()

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	logger = l
}

func writeInt(d *xxhash.Digest, n int) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(n))
	_, _ = d.Write(b[:])
}

func writeString(d *xxhash.Digest, s string) {
	writeInt(d, len(s))
	_, _ = d.WriteString(s)
}
