/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Mon Oct  5 11:02:48 2026 mstenber
 * Last modified: Fri Oct 16 10:14:55 2026 mstenber
 * Edit time:     71 min
 *
 */

// mlog is maybe-log: a thin layer over the standard 'log' package.
//
// Printf/Printf2 are debug traces which are off by default; the MLOG
// environment variable (or -mlog flag) is a regular expression
// matched against the file name given to Printf2 (or the caller's
// file for Printf). Matching output is indented by call depth and
// tagged with the goroutine id.
//
// Warnf is the always-on channel for diagnostics about failures that
// are handed back to the caller (out of space, name exists, ..).
package mlog

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fingon/go-tinyfs/util/gid"
)

const (
	stateUninitialized int32 = iota
	stateInitializing
	stateDisabled
	stateEnabled
)

const maxDepth = 100

var (
	logger     = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
	warnLogger = log.New(os.Stderr, "tinyfs: ", 0)

	// status is read atomically; everything below it only with
	// mutex held
	status int32 = stateUninitialized
	mutex  sync.Mutex

	flagPattern   *string
	pattern       string
	patternRegexp *regexp.Regexp
	file2Debug    map[string]bool
	minDepth      int
	callers       []uintptr

	dumpGids = true
)

func init() {
	flagPattern = flag.String("mlog", "", "Enable debug logging for files matching the regular expression")
	Reset()
}

// Reset returns the module to the state it has at startup; the next
// log call re-reads the environment.
func Reset() {
	mutex.Lock()
	defer mutex.Unlock()
	atomic.StoreInt32(&status, stateUninitialized)
	minDepth = maxDepth
	callers = make([]uintptr, maxDepth)
}

// IsEnabled can be used to skip expensive argument construction.
func IsEnabled() bool {
	return atomic.LoadInt32(&status) != stateDisabled
}

// SetLogger replaces the debug logger; call the result to undo.
func SetLogger(l *log.Logger) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := logger
	logger = l
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = old
	}
}

// SetWarnLogger replaces the Warnf destination; call the result to
// undo.
func SetWarnLogger(l *log.Logger) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := warnLogger
	warnLogger = l
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		warnLogger = old
	}
}

// SetPattern overrides the environment-provided pattern; call the
// result to undo.
func SetPattern(p string) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := pattern
	usePattern(p)
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		usePattern(old)
	}
}

func usePattern(p string) {
	pattern = p
	if p == "" {
		atomic.StoreInt32(&status, stateDisabled)
		return
	}
	patternRegexp = regexp.MustCompile(p)
	file2Debug = make(map[string]bool)
	atomic.StoreInt32(&status, stateEnabled)
}

func initialize() {
	if !atomic.CompareAndSwapInt32(&status, stateUninitialized, stateInitializing) {
		return
	}
	p := os.Getenv("MLOG")
	if *flagPattern != "" {
		p = *flagPattern
	}
	usePattern(p)
}

// Printf is drop-in replacement for log.Printf. It pays for
// runtime.Caller whenever MLOG is set at all; prefer Printf2.
func Printf(format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == stateDisabled {
		return
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	Printf2(file, format, args...)
}

// Printf2 logs if file matches the pattern. file is by convention
// "package/file" without the .go suffix.
func Printf2(file string, format string, args ...interface{}) {
	st := atomic.LoadInt32(&status)
	if st == stateDisabled {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()
	if st < stateDisabled {
		initialize()
		if atomic.LoadInt32(&status) != stateEnabled {
			return
		}
	}
	debug, seen := file2Debug[file]
	if !seen {
		debug = patternRegexp.MatchString(file)
		file2Debug[file] = debug
	}
	if !debug {
		return
	}
	depth := runtime.Callers(1, callers)
	if depth < minDepth {
		minDepth = depth
	}
	depth -= minDepth
	if depth > 0 {
		format = strings.Repeat(".", depth) + format
	}
	if dumpGids {
		format = fmt.Sprintf("%8d %s", gid.GetGoroutineID(), format)
	}
	logger.Printf(format, args...)
}

// Warnf reports a recoverable failure regardless of the pattern.
func Warnf(format string, args ...interface{}) {
	mutex.Lock()
	l := warnLogger
	mutex.Unlock()
	l.Printf(format, args...)
}
