package util

import (
	"fmt"
	"time"

	"github.com/balzaczyy/gostore/core/store"
	"github.com/balzaczyy/gostore/core/util"
)

// util/ThrottledIndexOutput.java

const DEFAULT_MIN_WRITTEN_BYTES = 1024

// Intentionally slow IndexOutput for testing.
type ThrottledIndexOutput struct {
	*store.IndexOutputImpl
	bytesPerSecond   int
	delegate         store.IndexOutput
	closeDelayMillis int64
	pendingBytes     int64
	minBytesWritten  int64
	timeElapsed      int64 // ns
	bytes            []byte
}

/* Returns a new output throttled like this one, writing to output. */
func (out *ThrottledIndexOutput) NewFromDelegate(output store.IndexOutput) *ThrottledIndexOutput {
	ans := &ThrottledIndexOutput{
		delegate:         output,
		bytesPerSecond:   out.bytesPerSecond,
		closeDelayMillis: out.closeDelayMillis,
		minBytesWritten:  out.minBytesWritten,
		bytes:            make([]byte, 1),
	}
	ans.IndexOutputImpl = store.NewIndexOutput(ans)
	return ans
}

func NewThrottledIndexOutput(bytesPerSecond int, delayInMillis int64, delegate store.IndexOutput) *ThrottledIndexOutput {
	assertTrue(bytesPerSecond > 0)
	ans := &ThrottledIndexOutput{
		delegate:         delegate,
		bytesPerSecond:   bytesPerSecond,
		closeDelayMillis: delayInMillis,
		minBytesWritten:  DEFAULT_MIN_WRITTEN_BYTES,
		bytes:            make([]byte, 1),
	}
	ans.IndexOutputImpl = store.NewIndexOutput(ans)
	return ans
}

func MBitsToBytes(mBits int) int {
	return mBits * 125000
}

func (out *ThrottledIndexOutput) Close() error {
	sleepMillis(out.closeDelayMillis + out.delay(true))
	return out.delegate.Close()
}

func (out *ThrottledIndexOutput) FilePointer() int64 {
	return out.delegate.FilePointer()
}

func (out *ThrottledIndexOutput) Checksum() (int64, error) {
	return out.delegate.Checksum()
}

func (out *ThrottledIndexOutput) WriteByte(b byte) error {
	out.bytes[0] = b
	return out.WriteBytes(out.bytes)
}

func (out *ThrottledIndexOutput) WriteBytes(buf []byte) error {
	before := time.Now()
	if err := out.delegate.WriteBytes(buf); err != nil {
		return err
	}
	out.timeElapsed += int64(time.Since(before))
	out.pendingBytes += int64(len(buf))
	sleepMillis(out.delay(false))
	return nil
}

// Returns how many milliseconds to wait to bring the observed
// throughput down to bytesPerSecond.
func (out *ThrottledIndexOutput) delay(closing bool) int64 {
	if out.pendingBytes > 0 && (closing || out.pendingBytes > out.minBytesWritten) {
		elapsed := out.timeElapsed
		if elapsed <= 0 {
			elapsed = 1
		}
		actualBps := out.pendingBytes * 1000000000 / elapsed
		if actualBps > int64(out.bytesPerSecond) {
			expected := out.pendingBytes * 1000 / int64(out.bytesPerSecond)
			delay := expected - (out.timeElapsed / 1000000)
			out.pendingBytes = 0
			out.timeElapsed = 0
			if delay < 0 {
				return 0
			}
			return delay
		}
	}
	return 0
}

func sleepMillis(ms int64) {
	if ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}
}

func (out *ThrottledIndexOutput) CopyBytes(input util.DataInput, numBytes int64) error {
	return out.delegate.CopyBytes(input, numBytes)
}

func (out *ThrottledIndexOutput) String() string {
	return fmt.Sprintf("ThrottledIndexOutput(%v, %v bytes/s)", out.delegate, out.bytesPerSecond)
}

func assertTrue(ok bool) {
	assert2(ok, "assert fail")
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}
