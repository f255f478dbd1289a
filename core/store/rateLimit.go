package store

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/balzaczyy/gostore/core/util"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// store/RateLimiter.java

/*
Abstract base class to rate limit IO. Typically implementations are
shared across multiple IndexInputs or IndexOutputs (for example those
involved all merging). Those IndexInputs and IndexOutputs would call
Pause() whenever they want to read bytes or write bytes.
*/
type RateLimiter interface {
	// Sets an updated mb per second rate limit. A non-positive value
	// disables pacing.
	SetMbPerSec(mbPerSec float64)
	// The current mb per second rate limit.
	MbPerSec() float64
	// Pause, if necessary, to keep the instantaneous IO rate at or
	// below the target. Returns the pause time in nanoseconds.
	Pause(bytes int64) int64
}

/*
Simple class to rate limit IO.

Fields are read and written atomically, but Pause() is not one atomic
step: concurrent callers may briefly push the rate above the target.
*/
type SimpleRateLimiter struct {
	mbPerSec  uint64 // float64 bits
	nsPerByte uint64 // float64 bits
	lastNS    int64
}

// mbPerSec is the MB/sec max IO rate
func NewSimpleRateLimiter(mbPerSec float64) *SimpleRateLimiter {
	ans := &SimpleRateLimiter{lastNS: time.Now().UnixNano()}
	ans.SetMbPerSec(mbPerSec)
	return ans
}

func (srl *SimpleRateLimiter) SetMbPerSec(mbPerSec float64) {
	var nsPerByte float64
	if mbPerSec > 0 {
		nsPerByte = 1000000000 / (1024 * 1024 * mbPerSec)
	}
	atomic.StoreUint64(&srl.mbPerSec, math.Float64bits(mbPerSec))
	atomic.StoreUint64(&srl.nsPerByte, math.Float64bits(nsPerByte))
}

func (srl *SimpleRateLimiter) MbPerSec() float64 {
	return math.Float64frombits(atomic.LoadUint64(&srl.mbPerSec))
}

/*
Pause, if necessary, to keep the instantaneous IO rate at or below
the target. NOTE: multiple goroutines may safely use this, however
the implementation is not perfectly thread safe but likely in
practice this is harmless (just means in some rare cases the rate
might exceed the target). It's best to call this with a biggish
count, not one byte at a time.
*/
func (srl *SimpleRateLimiter) Pause(bytes int64) int64 {
	if bytes == 1 {
		return 0
	}
	nsPerByte := math.Float64frombits(atomic.LoadUint64(&srl.nsPerByte))
	if nsPerByte == 0 {
		return 0
	}

	// TODO: this is purely instantaneous rate; maybe we
	// should also offer decayed recent history one?
	targetNS := atomic.AddInt64(&srl.lastNS, int64(float64(bytes)*nsPerByte))
	startNS := time.Now().UnixNano()
	curNS := startNS
	if targetNS < curNS {
		atomic.CompareAndSwapInt64(&srl.lastNS, targetNS, curNS)
	}

	// While loop because sleep doesn't always sleep enough:
	for pauseNS := targetNS - curNS; pauseNS > 0; pauseNS = targetNS - curNS {
		time.Sleep(time.Duration(pauseNS))
		curNS = time.Now().UnixNano()
	}
	return curNS - startNS
}

func (srl *SimpleRateLimiter) String() string {
	mbPerSec := srl.MbPerSec()
	if mbPerSec <= 0 {
		return "SimpleRateLimiter(unlimited)"
	}
	return fmt.Sprintf("SimpleRateLimiter(%v/s)", humanize.IBytes(uint64(mbPerSec*1024*1024)))
}

// store/RateLimitedDirectoryWrapper.java

/*
A Directory wrapper that allows IndexOutput rate limiting using IO
context specific rate limiters.
*/
type RateLimitedDirectoryWrapper struct {
	Directory
	limitersLock        sync.RWMutex
	contextRateLimiters [IO_CONTEXT_TYPE_DEFAULT]RateLimiter
	isOpen              int32
}

func NewRateLimitedDirectoryWrapper(wrapped Directory) *RateLimitedDirectoryWrapper {
	return &RateLimitedDirectoryWrapper{Directory: wrapped, isOpen: 1}
}

func (w *RateLimitedDirectoryWrapper) ensureOpen() error {
	if atomic.LoadInt32(&w.isOpen) == 0 {
		return newAlreadyClosedError("this Directory is closed")
	}
	return nil
}

func (w *RateLimitedDirectoryWrapper) CreateOutput(name string, ctx IOContext) (IndexOutput, error) {
	if err := w.ensureOpen(); err != nil {
		return nil, err
	}
	output, err := w.Directory.CreateOutput(name, ctx)
	if err != nil {
		return nil, err
	}
	if limiter := w.rateLimiter(ctx.Type()); limiter != nil {
		return newRateLimitedIndexOutput(limiter, output), nil
	}
	return output, nil
}

func (w *RateLimitedDirectoryWrapper) Copy(to Directory, src, dest string, ctx IOContext) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	return w.Directory.Copy(to, src, dest, ctx)
}

func (w *RateLimitedDirectoryWrapper) Close() error {
	if !atomic.CompareAndSwapInt32(&w.isOpen, 1, 0) {
		return nil
	}
	return w.Directory.Close()
}

func (w *RateLimitedDirectoryWrapper) String() string {
	return fmt.Sprintf("RateLimitedDirectoryWrapper(%v)", w.Directory)
}

func (w *RateLimitedDirectoryWrapper) rateLimiter(ctx IOContextType) RateLimiter {
	if checkContextType(ctx) != nil {
		return nil
	}
	w.limitersLock.RLock()
	defer w.limitersLock.RUnlock()
	return w.contextRateLimiters[int(ctx)-1]
}

func checkContextType(ctx IOContextType) error {
	if ctx < IO_CONTEXT_TYPE_MERGE || ctx > IO_CONTEXT_TYPE_DEFAULT {
		return errors.Errorf("invalid IOContext type: %v", int(ctx))
	}
	return nil
}

/*
Sets the maximum (approx) MB/sec allowed by all write IO performed by
IndexOutput created with the given context. Pass non-positve value to
have no limit.

NOTE: For already created IndexOutput instances there is no guarantee
this new rate will apply to them; it will only be guaranteed to apply
for new created IndexOutput instances.
*/
func (w *RateLimitedDirectoryWrapper) SetMaxWriteMBPerSec(mbPerSec float64, ctx IOContextType) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	if err := checkContextType(ctx); err != nil {
		return err
	}
	w.limitersLock.Lock()
	defer w.limitersLock.Unlock()
	ord := int(ctx) - 1
	limiter := w.contextRateLimiters[ord]
	if mbPerSec <= 0 {
		if limiter != nil {
			limiter.SetMbPerSec(0)
			w.contextRateLimiters[ord] = nil
		}
	} else if limiter != nil {
		limiter.SetMbPerSec(mbPerSec)
	} else {
		w.contextRateLimiters[ord] = NewSimpleRateLimiter(mbPerSec)
	}
	return nil
}

/*
Sets the rate limiter to be used to limit (approx) MB/sec allowed by
all IO performed with the given context. Pass nil to have no limit.

Passing an instance of rate limiter compared to settng it using
SetMaxWriteMBPerSec() allows to use the same limiter instance across
several directories globally limiting IO across them.
*/
func (w *RateLimitedDirectoryWrapper) SetRateLimiter(limiter RateLimiter, ctx IOContextType) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	if err := checkContextType(ctx); err != nil {
		return err
	}
	w.limitersLock.Lock()
	defer w.limitersLock.Unlock()
	w.contextRateLimiters[int(ctx)-1] = limiter
	return nil
}

/*
See SetMaxWriteMBPerSec(). Returns 0 if there is no limit for the
given context.
*/
func (w *RateLimitedDirectoryWrapper) MaxWriteMBPerSec(ctx IOContextType) (float64, error) {
	if err := w.ensureOpen(); err != nil {
		return 0, err
	}
	if err := checkContextType(ctx); err != nil {
		return 0, err
	}
	if limiter := w.rateLimiter(ctx); limiter != nil {
		return limiter.MbPerSec(), nil
	}
	return 0, nil
}

// store/RateLimitedIndexOutput.java

/* A rate limiting IndexOutput */
type RateLimitedIndexOutput struct {
	*BufferedIndexOutput
	delegate    IndexOutput
	rateLimiter RateLimiter
	closed      bool
}

func newRateLimitedIndexOutput(rateLimiter RateLimiter, delegate IndexOutput) *RateLimitedIndexOutput {
	ans := &RateLimitedIndexOutput{
		delegate:    delegate,
		rateLimiter: rateLimiter,
	}
	ans.BufferedIndexOutput = newBufferedIndexOutput(ans)
	return ans
}

func (out *RateLimitedIndexOutput) flushBuffer(b []byte) error {
	out.rateLimiter.Pause(int64(len(b)))
	return out.delegate.WriteBytes(b)
}

func (out *RateLimitedIndexOutput) Close() error {
	if out.closed {
		return nil
	}
	out.closed = true
	return util.CloseWhileHandlingError(out.BufferedIndexOutput.Close(), out.delegate)
}

func (out *RateLimitedIndexOutput) String() string {
	return fmt.Sprintf("RateLimitedIndexOutput(%v, %v)", out.delegate, out.rateLimiter)
}
