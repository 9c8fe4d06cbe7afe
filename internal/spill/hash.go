package spill

import "github.com/OneOfOne/xxhash"

// HashKey computes the partition key a hash-join/hash-aggregate
// operator passes to Partitioned.Write, adapted from
// internal/util/hash_utils.go's HashCode helper.
func HashKey(key []byte) int64 {
	h := xxhash.New64()
	h.Write(key)
	return int64(h.Sum64())
}
