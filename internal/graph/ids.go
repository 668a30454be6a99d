package graph

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// NodeID derives a stable node id from a canonical path or specifier.
func NodeID(canonical string) string {
	return "n" + strconv.FormatUint(xxhash.Sum64String(canonical), 36)
}

// EdgeID derives a stable edge id from the ordered node id pair.
func EdgeID(source, target string) string {
	return "e" + strconv.FormatUint(xxhash.Sum64String(source+"\x00"+target), 36)
}

// EdgeKey is the dedup key for an ordered (source, target) pair.
func EdgeKey(source, target string) string {
	return source + "->" + target
}
