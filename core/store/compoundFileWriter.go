package store

import (
	"container/list"
	"fmt"
	"hash"
	"hash/crc32"
	"sort"
	"sync"

	"github.com/balzaczyy/gostore/core/codec"
	"github.com/balzaczyy/gostore/core/util"
	"github.com/pkg/errors"
)

// store/CompoundFileWriter.java

// writerEntry is owned by the writer until the entry table is sealed.
type writerEntry struct {
	file           string    // source file
	length, offset int64     // offset is the start of this file's data section
	dir            Directory // which contains the file, for pending entries
	done           bool      // data is in the compound stream
}

/*
Combines multiple files into a single compound file.

At most one output writes straight into the compound data stream at
any time (the "output taken" slot). Outputs created while the slot is
held go to a separate file in the backing directory and are copied in
once the slot frees up.
*/
type CompoundFileWriter struct {
	sync.Locker
	directory Directory
	entries   map[string]*writerEntry
	seenIDs   map[string]bool
	// all entries that are written to a sep. file but not yet moved into CFS
	pendingEntries *list.List
	closed         bool
	dataOut        IndexOutput
	outputTaken    bool
	entryTableName string
	dataFileName   string
}

/*
Create the compound stream in the specified file. The filename is the
entire name (no extensions are added).
*/
func newCompoundFileWriter(dir Directory, name string) *CompoundFileWriter {
	assert2(dir != nil, "directory cannot be nil")
	assert2(name != "", "name cannot be empty")
	return &CompoundFileWriter{
		Locker:         &sync.Mutex{},
		directory:      dir,
		entries:        make(map[string]*writerEntry),
		seenIDs:        make(map[string]bool),
		pendingEntries: list.New(),
		entryTableName: util.SegmentFileName(
			util.StripExtension(name),
			"",
			COMPOUND_FILE_ENTRIES_EXTENSION,
		),
		dataFileName: name,
	}
}

// Must be called with the lock held.
func (w *CompoundFileWriter) output(ctx IOContext) (IndexOutput, error) {
	if w.dataOut == nil {
		out, err := w.directory.CreateOutput(w.dataFileName, ctx)
		if err != nil {
			return nil, err
		}
		if err = codec.WriteHeader(out, CFD_DATA_CODEC, CFD_VERSION_CURRENT); err != nil {
			util.CloseWhileSuppressingError(out)
			return nil, err
		}
		w.dataOut = out
	}
	return w.dataOut, nil
}

/* Closes all resouces and writes the entry table */
func (w *CompoundFileWriter) Close() (err error) {
	w.Lock()
	defer w.Unlock()
	if w.closed {
		log.Debugf("CompoundFileWriter %v is already closed.", w.dataFileName)
		return nil
	}
	if w.pendingEntries.Len() > 0 || w.outputTaken {
		return errors.Errorf("CFS has pending open files: %v", w.dataFileName)
	}
	w.closed = true

	defer func() {
		if err != nil {
			// best-effort; the seal failure is what gets reported
			util.DeleteFilesIgnoringErrors(w.directory, w.dataFileName, w.entryTableName)
		}
	}()
	if err = w.sealData(); err != nil {
		return err
	}

	entryTableOut, err := w.directory.CreateOutput(w.entryTableName, IO_CONTEXT_DEFAULT)
	if err != nil {
		return err
	}
	err = w.writeEntryTable(entryTableOut)
	if err = util.CloseWhileHandlingError(err, entryTableOut); err != nil {
		return err
	}
	log.Debugf("Sealed %v with %v entries", w.dataFileName, len(w.entries))
	return nil
}

func (w *CompoundFileWriter) sealData() error {
	// open the compound stream; we can safely use IO_CONTEXT_DEFAULT
	// here because this will only open the output if no file was
	// added to the CFS
	out, err := w.output(IO_CONTEXT_DEFAULT)
	if err != nil {
		return err
	}
	err = codec.WriteFooter(out)
	return util.CloseWhileHandlingError(err, out)
}

func (w *CompoundFileWriter) ensureOpen() error {
	if w.closed {
		return newAlreadyClosedError("CFS Directory is already closed")
	}
	return nil
}

/*
Copy the contents of the file with specified extension into the
provided output stream. The source file is deleted only after the
copy succeeded.
*/
func (w *CompoundFileWriter) copyFileEntry(dataOut IndexOutput, entry *writerEntry) (err error) {
	is, err := entry.dir.OpenInput(entry.file, IO_CONTEXT_READONCE)
	if err != nil {
		return err
	}
	startPtr := dataOut.FilePointer()
	if err = dataOut.CopyBytes(is, entry.length); err == nil {
		// verify that the output length diff is equal to original file
		if diff := dataOut.FilePointer() - startPtr; diff != entry.length {
			err = util.NewCorruptIndexErrorf(w.dataFileName,
				"Difference in the output file offsets %v does not match the original file length %v",
				diff, entry.length)
		}
	}
	if err = util.CloseWhileHandlingError(err, is); err != nil {
		return err
	}
	entry.offset = startPtr
	// copy successful - delete file
	if err = entry.dir.DeleteFile(entry.file); err != nil {
		log.Debugf("Could not delete %v after copying it into %v: %v", entry.file, w.dataFileName, err)
	}
	return nil
}

func (w *CompoundFileWriter) writeEntryTable(entryOut IndexOutput) (err error) {
	if err = codec.WriteHeader(entryOut, CFD_ENTRY_CODEC, CFD_VERSION_CURRENT); err != nil {
		return err
	}
	if err = entryOut.WriteVInt(int32(len(w.entries))); err != nil {
		return err
	}
	names := make([]string, 0, len(w.entries))
	for name := range w.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fe := w.entries[name]
		if err = entryOut.WriteString(util.StripSegmentName(fe.file)); err != nil {
			return err
		}
		if err = entryOut.WriteLong(fe.offset); err != nil {
			return err
		}
		if err = entryOut.WriteLong(fe.length); err != nil {
			return err
		}
	}
	return codec.WriteFooter(entryOut)
}

func (w *CompoundFileWriter) createOutput(name string, context IOContext) (out IndexOutput, err error) {
	w.Lock()
	defer w.Unlock()
	if err = w.ensureOpen(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.New("name must not be empty")
	}
	if _, ok := w.entries[name]; ok {
		return nil, errors.Errorf("File %v already exists", name)
	}
	id := util.StripSegmentName(name)
	if w.seenIDs[id] {
		return nil, errors.Errorf("file='%v' maps to id='%v', which was already written", name, id)
	}

	entry := &writerEntry{file: name}
	w.entries[name] = entry
	w.seenIDs[id] = true
	defer func() {
		if err != nil {
			delete(w.entries, name)
			delete(w.seenIDs, id)
		}
	}()

	if !w.outputTaken {
		dataOut, err := w.output(context)
		if err != nil {
			return nil, err
		}
		w.outputTaken = true
		return newDirectCFSIndexOutput(w, dataOut, entry, false), nil
	}
	entry.dir = w.directory
	delegate, err := w.directory.CreateOutput(name, context)
	if err != nil {
		return nil, err
	}
	return newDirectCFSIndexOutput(w, delegate, entry, true), nil
}

/*
Claims the output slot, if free, and copies all pending files into
the compound stream. Copying happens outside the lock; the slot keeps
any other goroutine off the data stream meanwhile.
*/
func (w *CompoundFileWriter) prunePendingEntries() error {
	w.Lock()
	if w.outputTaken {
		w.Unlock()
		return nil // the slot holder prunes when it is released
	}
	w.outputTaken = true
	for w.pendingEntries.Len() > 0 {
		entry := w.pendingEntries.Remove(w.pendingEntries.Front()).(*writerEntry)
		out, err := w.output(NewIOContextForFlush(&FlushInfo{0, entry.length}))
		w.Unlock()

		if err == nil {
			log.Debugf("Copying pending entry %v into %v", entry.file, w.dataFileName)
			err = w.copyFileEntry(out, entry)
		}

		w.Lock()
		if err != nil {
			// keep it pending so that sealing the CFS fails loudly
			w.pendingEntries.PushFront(entry)
			w.outputTaken = false
			w.Unlock()
			return err
		}
		entry.done = true
	}
	w.outputTaken = false
	w.Unlock()
	return nil
}

func (w *CompoundFileWriter) listAll() []string {
	w.Lock()
	defer w.Unlock()
	var names []string
	for name, entry := range w.entries {
		if entry.done {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (w *CompoundFileWriter) fileExists(name string) bool {
	w.Lock()
	defer w.Unlock()
	_, ok := w.entries[name]
	return ok
}

func (w *CompoundFileWriter) fileLength(name string) (int64, bool) {
	w.Lock()
	defer w.Unlock()
	if entry, ok := w.entries[name]; ok && entry.done {
		return entry.length, true
	}
	return 0, false
}

/*
An output for one compound entry: either a window of the shared data
stream (the slot holder) or a separate file to be copied in later.
*/
type DirectCFSIndexOutput struct {
	*IndexOutputImpl
	owner        *CompoundFileWriter
	delegate     IndexOutput
	offset       int64
	closed       bool
	entry        *writerEntry
	writtenBytes int64
	isSeparate   bool
	crc          hash.Hash32 // over this entry's bytes only
}

func newDirectCFSIndexOutput(owner *CompoundFileWriter,
	delegate IndexOutput, entry *writerEntry, isSeparate bool) *DirectCFSIndexOutput {
	ans := &DirectCFSIndexOutput{
		owner:      owner,
		delegate:   delegate,
		entry:      entry,
		offset:     delegate.FilePointer(),
		isSeparate: isSeparate,
		crc:        crc32.NewIEEE(),
	}
	ans.entry.offset = ans.offset
	ans.IndexOutputImpl = NewIndexOutput(ans)
	return ans
}

func (out *DirectCFSIndexOutput) Close() (err error) {
	if out.closed {
		return nil
	}
	out.closed = true
	w := out.owner
	if out.isSeparate {
		if err = out.delegate.Close(); err != nil {
			w.Lock()
			delete(w.entries, out.entry.file)
			delete(w.seenIDs, util.StripSegmentName(out.entry.file))
			w.Unlock()
			return err
		}
		// we are a separate file - push into the pending entries
		w.Lock()
		out.entry.length = out.writtenBytes
		w.pendingEntries.PushBack(out.entry)
		w.Unlock()
	} else {
		// we have been written into the CFS directly - release the lock
		w.Lock()
		out.entry.length = out.writtenBytes
		out.entry.done = true
		assertTrue(w.outputTaken)
		w.outputTaken = false
		w.Unlock()
	}
	// now prune all pending entries and push them into the CFS
	return w.prunePendingEntries()
}

func (out *DirectCFSIndexOutput) FilePointer() int64 {
	return out.delegate.FilePointer() - out.offset
}

func (out *DirectCFSIndexOutput) WriteByte(b byte) error {
	if out.closed {
		return newAlreadyClosedError("Already closed: %v", out)
	}
	out.writtenBytes++
	out.crc.Write([]byte{b})
	return out.delegate.WriteByte(b)
}

func (out *DirectCFSIndexOutput) WriteBytes(b []byte) error {
	if out.closed {
		return newAlreadyClosedError("Already closed: %v", out)
	}
	out.writtenBytes += int64(len(b))
	out.crc.Write(b)
	return out.delegate.WriteBytes(b)
}

func (out *DirectCFSIndexOutput) Checksum() (int64, error) {
	return int64(out.crc.Sum32()), nil
}

func (out *DirectCFSIndexOutput) String() string {
	return fmt.Sprintf("DirectCFSIndexOutput(%v in %v)", out.entry.file, out.owner.dataFileName)
}
