package server

import "crypto/rand"

// idAlphabet is URL-safe and free of path separators, so generated IDs are
// valid directory names and short-link segments by construction.
const idAlphabet = "useandom26T198340PX75pxJACKVERYMINDBUSHWOLFGQZbfghjklqvwyzrict"

const (
	bucketIDLength = 10
	shortIDLength  = 8
)

// newID returns n crypto-random characters from idAlphabet.
func newID(n int) string {
	buf := make([]byte, n)
	// crypto/rand.Read never fails on supported platforms.
	_, _ = rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out)
}

func newBucketID() string { return newID(bucketIDLength) }
func newShortID() string  { return newID(shortIDLength) }
