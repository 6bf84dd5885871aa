package commutator

import "math/rand"

// DefaultIDLength is the length of the correlation ids generated by Call.
const DefaultIDLength = 10

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// MakeID returns length characters drawn uniformly from the alphanumeric
// alphabet. Ids are not checked for collisions.
func MakeID(length int) string {
	if length <= 0 {
		length = DefaultIDLength
	}
	id := make([]byte, length)
	for i := range id {
		id[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return string(id)
}
