package util

import (
	"io/ioutil"
	"math/rand"

	"github.com/pkg/errors"
)

// util/_TestUtil.java

// Returns a temp directory, based on the given description. Creates
// the directory; the caller removes it.
func TempDir(desc string) (string, error) {
	if len(desc) < 3 {
		return "", errors.Errorf("description must be at least 3 characters: %v", desc)
	}
	f, err := ioutil.TempDir("", desc)
	return f, errors.WithStack(err)
}

// L264
// Returns a random int in [start, end].
func NextInt(r *rand.Rand, start, end int) int {
	return r.Intn(end-start+1) + start
}

// Returns random bytes of a length in [0, maxLength].
func RandomBytes(r *rand.Rand, maxLength int) []byte {
	b := make([]byte, NextInt(r, 0, maxLength))
	r.Read(b)
	return b
}

// L314
// Returns random string, including full unicode range.
func RandomUnicodeString(r *rand.Rand) string {
	return RandomUnicodeStringLength(r, 20)
}

// Returns a random string up to a certain length.
func RandomUnicodeStringLength(r *rand.Rand, maxLength int) string {
	end := NextInt(r, 0, maxLength)
	if end == 0 {
		// allow 0 length
		return ""
	}
	buffer := make([]rune, end)
	randomFixedLengthUnicodeString(r, buffer)
	return string(buffer)
}

// Fills provided []rune with valid random code points.
func randomFixedLengthUnicodeString(random *rand.Rand, chars []rune) {
	for i := range chars {
		switch t := random.Intn(5); {
		case t == 0:
			// supplementary plane
			chars[i] = rune(NextInt(random, 0x10000, 0x10ffff))
		case t == 1:
			chars[i] = rune(random.Intn(0x80))
		case t == 2:
			chars[i] = rune(NextInt(random, 0x80, 0x7ff))
		case t == 3:
			chars[i] = rune(NextInt(random, 0x800, 0xd7ff))
		default:
			chars[i] = rune(NextInt(random, 0xe000, 0xffff))
		}
	}
}
