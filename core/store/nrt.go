package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/balzaczyy/gostore/core/util"
	"github.com/dustin/go-humanize"
)

// store/NRTCachingDirectory.java

/*
Wraps a RAMDirectory around any provided delegate directory, to be
used when many tiny files are written and re-read shortly after.

This directory keeps small newly flushed files (as well as the files
produced by merging them, as long as they are small enough) in RAM.
Sync() and Close() move cached files to the delegate before syncing
or closing it.

Here's a simple example usage:

	fsDir, _ := OpenFSDirectory("/path/to/index")
	cachedFSDir := NewNRTCachingDirectory(fsDir, 5.0, 60.0)

This will cache all newly flushed files, all merged whose expected
size is <= 5 MB, unless the net cached bytes exceeds 60 MB at which
point all writes will not be cached (until the net bytes falls below
60 MB).
*/
type NRTCachingDirectory struct {
	Directory
	sync.Locker
	cache             *RAMDirectory
	maxMergeSizeBytes int64
	maxCachedBytes    int64
	uncacheLock       sync.Locker
}

/*
We will cache a newly created output if 1) it's a flush or a merge
and the estimated size of the merged segment is <= maxMergeSizeMB,
and 2) the total cached bytes is <= maxCachedMB.
*/
func NewNRTCachingDirectory(delegate Directory, maxMergeSizeMB, maxCachedMB float64) *NRTCachingDirectory {
	return &NRTCachingDirectory{
		Directory:         delegate,
		Locker:            &sync.Mutex{},
		cache:             NewRAMDirectory(),
		maxMergeSizeBytes: int64(maxMergeSizeMB * 1024 * 1024),
		maxCachedBytes:    int64(maxCachedMB * 1024 * 1024),
		uncacheLock:       &sync.Mutex{},
	}
}

func (nrt *NRTCachingDirectory) String() string {
	return fmt.Sprintf("NRTCachingDirectory(%v; maxCache=%v maxMergeSize=%v)",
		nrt.Directory,
		humanize.IBytes(uint64(nrt.maxCachedBytes)),
		humanize.IBytes(uint64(nrt.maxMergeSizeBytes)))
}

func (nrt *NRTCachingDirectory) ListAll() ([]string, error) {
	nrt.Lock() // synchronized
	defer nrt.Unlock()
	files := make(map[string]bool)
	cached, err := nrt.cache.ListAll()
	if err != nil {
		return nil, err
	}
	for _, f := range cached {
		files[f] = true
	}
	// LUCENE-1468: our NRTCachingDirectory will actually exist (RAMDir!),
	// but if the underlying delegate is an FSDir and mkdirs() has not
	// yet been called, because so far everything is a cached write,
	// in this case, we don't want to throw a NoSuchDirectoryError
	all, err := nrt.Directory.ListAll()
	if err != nil {
		// however if there are no cached files, then the directory truly
		// does not "exist"
		if !IsNoSuchDirectory(err) || len(files) == 0 {
			return nil, err
		}
	}
	for _, f := range all {
		// Cannot do this -- if Lucene calls createOutput but files
		// already exists then this falsely trips:
		// assert2(!files[f], "file '%v' is in both dirs", f)
		files[f] = true
	}
	all = make([]string, 0, len(files))
	for f := range files {
		all = append(all, f)
	}
	sort.Strings(all)
	return all, nil
}

/* Returns how many bytes are being used by the RAMDirectory cache */
func (nrt *NRTCachingDirectory) SizeInBytes() int64 {
	return nrt.cache.SizeInBytes()
}

/* Lists the files currently held in RAM. */
func (nrt *NRTCachingDirectory) ListCachedFiles() ([]string, error) {
	return nrt.cache.ListAll()
}

func (nrt *NRTCachingDirectory) FileExists(name string) (bool, error) {
	nrt.Lock() // synchronized
	defer nrt.Unlock()
	if ok, err := nrt.cache.FileExists(name); ok || err != nil {
		return ok, err
	}
	return nrt.Directory.FileExists(name)
}

func (nrt *NRTCachingDirectory) cached(name string) bool {
	ok, _ := nrt.cache.FileExists(name)
	return ok
}

func (nrt *NRTCachingDirectory) DeleteFile(name string) error {
	nrt.Lock() // synchronized
	defer nrt.Unlock()
	log.Debugf("nrtdir.deleteFile name=%v", name)
	if nrt.cached(name) {
		return nrt.cache.DeleteFile(name)
	}
	return nrt.Directory.DeleteFile(name)
}

func (nrt *NRTCachingDirectory) FileLength(name string) (int64, error) {
	nrt.Lock() // synchronized
	defer nrt.Unlock()
	if nrt.cached(name) {
		return nrt.cache.FileLength(name)
	}
	return nrt.Directory.FileLength(name)
}

func (nrt *NRTCachingDirectory) CreateOutput(name string, context IOContext) (IndexOutput, error) {
	log.Debugf("nrtdir.createOutput name=%v", name)
	if nrt.doCacheWrite(name, context) {
		log.Debugf("  to cache")
		// the file may not exist in the delegate
		nrt.Directory.DeleteFile(name)
		return nrt.cache.CreateOutput(name, context)
	}
	nrt.cache.DeleteFile(name) // ignore: it may not be cached
	return nrt.Directory.CreateOutput(name, context)
}

func (nrt *NRTCachingDirectory) Sync(fileNames []string) error {
	log.Debugf("nrtdir.sync files=%v", fileNames)
	for _, fileName := range fileNames {
		if err := nrt.unCache(fileName); err != nil {
			return err
		}
	}
	return nrt.Directory.Sync(fileNames)
}

func (nrt *NRTCachingDirectory) RenameFile(source, dest string) error {
	nrt.Lock() // synchronized
	defer nrt.Unlock()
	if nrt.cached(source) {
		return nrt.cache.RenameFile(source, dest)
	}
	return nrt.Directory.RenameFile(source, dest)
}

func (nrt *NRTCachingDirectory) OpenInput(name string, context IOContext) (IndexInput, error) {
	nrt.Lock() // synchronized
	defer nrt.Unlock()
	log.Debugf("nrtdir.openInput name=%v", name)
	if nrt.cached(name) {
		log.Debugf("  from cache")
		return nrt.cache.OpenInput(name, context)
	}
	return nrt.Directory.OpenInput(name, context)
}

func (nrt *NRTCachingDirectory) OpenChecksumInput(name string, context IOContext) (ChecksumIndexInput, error) {
	return openChecksumInput(nrt, name, context)
}

func (nrt *NRTCachingDirectory) CreateSlicer(name string, context IOContext) (IndexInputSlicer, error) {
	nrt.Lock() // synchronized
	defer nrt.Unlock()
	if nrt.cached(name) {
		return nrt.cache.CreateSlicer(name, context)
	}
	return nrt.Directory.CreateSlicer(name, context)
}

func (nrt *NRTCachingDirectory) Copy(to Directory, src, dest string, ctx IOContext) error {
	return copyFile(nrt, to, src, dest, ctx)
}

/*
Close this directory, which flushes any cached files to the delegate
and then closes the delegate.
*/
func (nrt *NRTCachingDirectory) Close() error {
	// NOTE: technically we shouldn't have to do this, ie, callers
	// should have sync'd all files, but in case the app is doing
	// something custom (creating outputs directly w/o syncing):
	all, err := nrt.cache.ListAll()
	if err != nil {
		return err
	}
	for _, fileName := range all {
		if err = nrt.unCache(fileName); err != nil {
			return util.CloseWhileHandlingError(err, nrt.cache, nrt.Directory)
		}
	}
	return util.Close(nrt.cache, nrt.Directory)
}

/*
Returns true if this file should be written to the RAMDirectory.
*/
func (nrt *NRTCachingDirectory) doCacheWrite(name string, context IOContext) bool {
	var bytes int64
	if context.MergeInfo != nil {
		bytes = context.MergeInfo.EstimatedMergeBytes
	} else if context.FlushInfo != nil {
		bytes = context.FlushInfo.EstimatedSegmentSize
	}
	return bytes <= nrt.maxMergeSizeBytes &&
		bytes+nrt.cache.SizeInBytes() <= nrt.maxCachedBytes
}

func (nrt *NRTCachingDirectory) unCache(fileName string) (err error) {
	// Only let one goroutine uncache at a time; this only happens
	// during commit() or close():
	nrt.uncacheLock.Lock()
	defer nrt.uncacheLock.Unlock()

	log.Debugf("nrtdir.unCache name=%v", fileName)
	if !nrt.cached(fileName) {
		// Another goroutine beat us...
		return nil
	}
	context := IO_CONTEXT_DEFAULT
	out, err := nrt.Directory.CreateOutput(fileName, context)
	if err != nil {
		return err
	}
	in, err := nrt.cache.OpenInput(fileName, context)
	if err == nil {
		err = out.CopyBytes(in, in.Length())
		err = util.CloseWhileHandlingError(err, in)
	}
	if err = util.CloseWhileHandlingError(err, out); err != nil {
		return err
	}

	nrt.Lock()
	defer nrt.Unlock()
	// Lock order: uncacheLock -> this
	return nrt.cache.DeleteFile(fileName)
}
