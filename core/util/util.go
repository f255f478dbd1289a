package util

import (
	"fmt"
	"strconv"
)

func assertTrue(ok bool) {
	if !ok {
		panic("assert fail")
	}
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}

func ItoHex(i int64) string {
	return strconv.FormatInt(i, 16)
}

/* Returns the number of bytes WriteVInt() would need for i. */
func VIntLength(i int32) int {
	n := 1
	for u := uint32(i); u&^0x7F != 0; u >>= 7 {
		n++
	}
	return n
}

/* Returns the number of bytes WriteVLong() would need for i. */
func VLongLength(i int64) int {
	n := 1
	for u := uint64(i); u&^0x7F != 0; u >>= 7 {
		n++
	}
	return n
}
