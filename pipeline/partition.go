package pipeline

import "hash/fnv"

// partition hashes a payload onto one of n workers so equal payload keys
// always land on the same operator instance.
func partition(data []byte, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New64a()
	h.Write(data)
	return int(h.Sum64() % uint64(n))
}
