package util

import (
	"math"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("test_framework")

// --------------------------------------------------------------------
// Test groups, system properties and other annotations modifying tests
// --------------------------------------------------------------------
const (
	SYSPROP_NIGHTLY = "tests_nightly"
)

// -----------------------------------------------------------------
// Truly immutable fields and constants, initialized once and valid
// for all suites ever since.
// -----------------------------------------------------------------

// True if and only if tests are run in verbose mode. If this flag is false
// tests are not expected to print any messages.
var VERBOSE = ("true" == or(os.Getenv("tests_verbose"), "false"))

// A random multiplier which you should use when writing random tests:
// multiply it by the number of iterations to scale your tests (for nightly builds).
var RANDOM_MULTIPLIER = func() int {
	n, err := strconv.Atoi(or(os.Getenv("tests_multiplier"), "1"))
	if err != nil {
		panic(errors.Wrap(err, "tests_multiplier"))
	}
	return n
}()

// Gets the directory to run tests with: RAMDirectory,
// SimpleFSDirectory, MMapDirectory, or random.
var TEST_DIRECTORY = or(os.Getenv("tests_directory"), "random")

// Whether or not Nightly tests should run
var TEST_NIGHTLY = ("true" == or(os.Getenv(SYSPROP_NIGHTLY), "false"))

// The seed all randoms derive from. Set tests_seed to reproduce a run.
var TEST_SEED = func() int64 {
	if s := os.Getenv("tests_seed"); s != "" {
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			panic(errors.Wrap(err, "tests_seed"))
		}
		return n
	}
	return time.Now().UTC().UnixNano()
}()

var logSeedOnce sync.Once

func or(a, b string) string {
	if len(a) > 0 {
		return a
	}
	return b
}

// -----------------------------------------------------------------
// Test facilities and facades for subclasses.
// -----------------------------------------------------------------

/*
Note it's different from Lucene's Randomized Test Runner.

Every call returns a new Random derived from TEST_SEED, so a failing
run can be replayed with tests_seed. It is better to cache this
Random locally if tight loops with multiple invocations are present.
*/
func Random() *rand.Rand {
	logSeedOnce.Do(func() {
		log.Infof("tests_seed=%v", TEST_SEED)
	})
	return rand.New(rand.NewSource(TEST_SEED))
}

// L643

/*
Returns a number of at least i

The actual number returned will be influenced by whether TEST_NIGHTLY
is active and RANDOM_MULTIPLIER, but also with some random fudge.
*/
func AtLeastBy(random *rand.Rand, i int) int {
	min := i * RANDOM_MULTIPLIER
	if TEST_NIGHTLY {
		min = 2 * min
	}
	max := min + min/2
	return NextInt(random, min, max)
}

func AtLeast(i int) int {
	return AtLeastBy(Random(), i)
}

/*
Returns true if something should happen rarely,

The actual number returned will be influenced by whether TEST_NIGHTLY
is active and RANDOM_MULTIPLIER
*/
func Rarely(random *rand.Rand) bool {
	p := 1
	if TEST_NIGHTLY {
		p = 10
	}
	p += int(float64(p) * math.Log(float64(RANDOM_MULTIPLIER)))
	if p > 50 {
		p = 50
	}
	min := 100 - p // never more than 50
	return random.Intn(100) >= min
}

func Usually(r *rand.Rand) bool {
	return !Rarely(r)
}

/*
Assumption is different from Assert that Assumption returns error,
while Assert panics.
*/
func AssumeTrue(msg string, ok bool) error {
	if !ok {
		return errors.New(msg)
	}
	return nil
}

func AssumeFalse(msg string, ok bool) error {
	if ok {
		return errors.New(msg)
	}
	return nil
}
