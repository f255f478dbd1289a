package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/balzaczyy/gostore/core/codec"
	"github.com/balzaczyy/gostore/core/util"
	"github.com/pkg/errors"
)

// store/CompoundFileDirectory.java

/* Offset and length of one sub-file inside a sealed compound file. */
type FileEntry struct {
	Offset, Length int64
}

const (
	CFD_DATA_CODEC       = "CompoundFileWriterData"
	CFD_VERSION_START    = 0
	CFD_VERSION_CHECKSUM = 1
	CFD_VERSION_CURRENT  = CFD_VERSION_CHECKSUM

	CFD_ENTRY_CODEC = "CompoundFileWriterEntries"

	COMPOUND_FILE_EXTENSION         = "cfs"
	COMPOUND_FILE_ENTRIES_EXTENSION = "cfe"

	// legacy (pre-versioned) format markers
	CFD_FORMAT_PRE_VERSION       = 0
	CFD_FORMAT_NO_SEGMENT_PREFIX = -1
)

/*
Class for accessing a compound stream. This class implements a
directory, but is limited to only read operations. Directory methods
that would normally modify data return UnsupportedOperationError.

Opened for write, it exposes a CompoundFileWriter through the
Directory surface instead.
*/
type CompoundFileDirectory struct {
	*DirectoryImpl
	*BaseDirectory
	sync.Locker

	directory      Directory
	fileName       string
	readBufferSize int
	entries        map[string]FileEntry
	openForWrite   bool
	writer         *CompoundFileWriter
	handle         IndexInput
	version        int32
	legacy         bool
}

/* Create a new CompoundFileDirectory. */
func NewCompoundFileDirectory(directory Directory, fileName string, context IOContext, openForWrite bool) (d *CompoundFileDirectory, err error) {
	d = &CompoundFileDirectory{
		Locker:         &sync.Mutex{},
		directory:      directory,
		fileName:       fileName,
		readBufferSize: bufferSize(context),
		openForWrite:   openForWrite,
	}
	d.DirectoryImpl = NewDirectoryImpl(d)
	d.BaseDirectory = NewBaseDirectory(d)

	if openForWrite {
		if _, ok := directory.(*CompoundFileDirectory); ok {
			return nil, errors.Errorf("compound file inside of compound file: %v", fileName)
		}
		d.entries = make(map[string]FileEntry)
		d.writer = newCompoundFileWriter(directory, fileName)
		return d, nil
	}

	if d.handle, err = directory.OpenInput(fileName, context); err != nil {
		return nil, err
	}
	if err = d.init(directory, fileName); err != nil {
		return nil, util.CloseWhileHandlingError(err, d.handle)
	}
	log.Debugf("Opened %v: %v entries, version %v", d, len(d.entries), d.version)
	return d, nil
}

func (d *CompoundFileDirectory) init(directory Directory, fileName string) (err error) {
	if d.entries, err = d.readEntries(d.handle, directory, fileName); err != nil {
		return err
	}
	if d.version >= CFD_VERSION_CHECKSUM {
		if _, err = codec.CheckHeader(d.handle, CFD_DATA_CODEC, d.version, d.version); err != nil {
			return err
		}
		// NOTE: data file is too costly to verify checksum against all the
		// bytes on open, but for now we at least verify proper structure
		// of the checksum footer: which looks for FOOTER_MAGIC +
		// algorithmID. This is cheap and can detect some forms of
		// corruption such as file trucation.
		if _, err = codec.RetrieveChecksum(d.handle); err != nil {
			return err
		}
	}
	return nil
}

const (
	CODEC_MAGIC_BYTE1 = byte(uint32(codec.CODEC_MAGIC) >> 24 & 0xFF)
	CODEC_MAGIC_BYTE2 = byte(uint32(codec.CODEC_MAGIC) >> 16 & 0xFF)
	CODEC_MAGIC_BYTE3 = byte(uint32(codec.CODEC_MAGIC) >> 8 & 0xFF)
	CODEC_MAGIC_BYTE4 = byte(codec.CODEC_MAGIC & 0xFF)
)

/* Helper method that reads CFS entries from an input stream */
func (d *CompoundFileDirectory) readEntries(handle IndexInput, dir Directory, name string) (mapping map[string]FileEntry, err error) {
	stream := handle.Clone()
	defer func() {
		err = util.CloseWhileHandlingError(err, stream)
	}()

	// read the first VInt. If it is negative, it's the version number
	// otherwise it's the count (pre-3.1 indexes)
	firstInt, err := stream.ReadVInt()
	if err != nil {
		return nil, err
	}
	// impossible for 3.0 to have 63 files in a .cfs, CFS writer was not visible
	// and separate norms/etc are outside of cfs.
	if firstInt != int32(CODEC_MAGIC_BYTE1) {
		d.legacy = true
		return readLegacyEntries(stream, firstInt)
	}

	var magic [3]byte
	if err = stream.ReadBytes(magic[:]); err != nil {
		return nil, err
	}
	if magic[0] != CODEC_MAGIC_BYTE2 || magic[1] != CODEC_MAGIC_BYTE3 || magic[2] != CODEC_MAGIC_BYTE4 {
		return nil, util.NewCorruptIndexErrorf(stream.String(),
			"Illegal/impossible header for CFS file: %v,%v,%v", magic[0], magic[1], magic[2])
	}
	if d.version, err = codec.CheckHeaderNoMagic(stream, CFD_DATA_CODEC, CFD_VERSION_START, CFD_VERSION_CURRENT); err != nil {
		return nil, err
	}

	entriesFileName := util.SegmentFileName(util.StripExtension(name), "", COMPOUND_FILE_ENTRIES_EXTENSION)
	entriesStream, err := dir.OpenChecksumInput(entriesFileName, IO_CONTEXT_READONCE)
	if err != nil {
		return nil, err
	}
	mapping, err = d.readEntryTable(entriesStream)
	return mapping, util.CloseWhileHandlingError(err, entriesStream)
}

func (d *CompoundFileDirectory) readEntryTable(in ChecksumIndexInput) (map[string]FileEntry, error) {
	if _, err := codec.CheckHeader(in, CFD_ENTRY_CODEC, CFD_VERSION_START, CFD_VERSION_CURRENT); err != nil {
		return nil, err
	}
	numEntries, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	if numEntries < 0 {
		return nil, util.NewCorruptIndexErrorf(in.String(), "invalid entry count: %v", numEntries)
	}
	mapping := make(map[string]FileEntry)
	for i := int32(0); i < numEntries; i++ {
		id, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		if _, ok := mapping[id]; ok {
			return nil, util.NewCorruptIndexErrorf(in.String(), "Duplicate cfs entry id=%v in CFS", id)
		}
		offset, err := in.ReadLong()
		if err != nil {
			return nil, err
		}
		length, err := in.ReadLong()
		if err != nil {
			return nil, err
		}
		mapping[id] = FileEntry{offset, length}
	}
	if d.version >= CFD_VERSION_CHECKSUM {
		_, err = codec.CheckFooter(in)
	} else {
		err = codec.CheckEOF(in)
	}
	return mapping, err
}

/*
Reads the entry table of a pre-versioned compound file, which sits
at the start of the data file itself. Lengths are implied by the
offset of the following entry; the last entry runs to the end of the
file.
*/
func readLegacyEntries(stream IndexInput, firstInt int32) (map[string]FileEntry, error) {
	entries := make(map[string]FileEntry)
	var count int32
	var stripSegmentName bool
	if firstInt < CFD_FORMAT_PRE_VERSION {
		if firstInt < CFD_FORMAT_NO_SEGMENT_PREFIX {
			return nil, util.NewCorruptIndexErrorf(stream.String(),
				"Incompatible format version: %v expected >= %v", firstInt, CFD_FORMAT_NO_SEGMENT_PREFIX)
		}
		// It's a post-3.1 index, read the count.
		var err error
		if count, err = stream.ReadVInt(); err != nil {
			return nil, err
		}
	} else {
		count = firstInt
		stripSegmentName = true
	}

	// read the directory and init files
	streamLength := stream.Length()
	var prevID string
	var prev *FileEntry
	for i := int32(0); i < count; i++ {
		offset, err := stream.ReadLong()
		if err != nil {
			return nil, err
		}
		if offset < 0 || offset > streamLength {
			return nil, util.NewCorruptIndexErrorf(stream.String(), "Invalid CFS entry offset: %v", offset)
		}
		id, err := stream.ReadString()
		if err != nil {
			return nil, err
		}
		if stripSegmentName {
			id = util.StripSegmentName(id)
		}
		if prev != nil {
			prev.Length = offset - prev.Offset
			entries[prevID] = *prev
		}
		if _, ok := entries[id]; ok {
			return nil, util.NewCorruptIndexErrorf(stream.String(), "Duplicate cfs entry id=%v in CFS", id)
		}
		prevID, prev = id, &FileEntry{Offset: offset}
	}
	if prev != nil {
		prev.Length = streamLength - prev.Offset
		entries[prevID] = *prev
	}
	return entries, nil
}

func (d *CompoundFileDirectory) Close() error {
	d.Lock() // syncronized
	defer d.Unlock()

	if !d.markClosed() {
		log.Debugf("%v is already closed.", d)
		// allow double close - usually to be consistent with other closeables
		return nil
	}
	if d.writer != nil {
		assertTrue(d.openForWrite)
		return d.writer.Close()
	}
	return util.Close(d.handle)
}

func (d *CompoundFileDirectory) entry(name string) (FileEntry, error) {
	id := util.StripSegmentName(name)
	if entry, ok := d.entries[id]; ok {
		return entry, nil
	}
	return FileEntry{}, errors.Wrapf(newFileNotFoundError(name, d),
		"No sub-file with id %v found (files: %v)", id, d.ids())
}

func (d *CompoundFileDirectory) ids() []string {
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *CompoundFileDirectory) OpenInput(name string, context IOContext) (in IndexInput, err error) {
	d.Lock() // synchronized
	defer d.Unlock()

	if err = d.EnsureOpen(); err != nil {
		return nil, err
	}
	if d.openForWrite {
		return nil, newUnsupportedOperationError("OpenInput", d)
	}
	entry, err := d.entry(name)
	if err != nil {
		return nil, err
	}
	return d.handle.Slice(name, entry.Offset, entry.Length)
}

/* Returns an array of strings, one for each file in the directory. */
func (d *CompoundFileDirectory) ListAll() (paths []string, err error) {
	if err = d.EnsureOpen(); err != nil {
		return nil, err
	}
	if d.writer != nil {
		return d.writer.listAll(), nil
	}
	// Add the segment name
	seg := util.ParseSegmentName(d.fileName)
	for _, id := range d.ids() {
		paths = append(paths, seg+id)
	}
	return paths, nil
}

/* Returns true iff a file with the given name exists. */
func (d *CompoundFileDirectory) FileExists(name string) (bool, error) {
	if err := d.EnsureOpen(); err != nil {
		return false, err
	}
	if d.writer != nil {
		return d.writer.fileExists(name), nil
	}
	_, ok := d.entries[util.StripSegmentName(name)]
	return ok, nil
}

/* Not implemented */
func (d *CompoundFileDirectory) DeleteFile(name string) error {
	return newUnsupportedOperationError("DeleteFile", d)
}

/* Not implemented */
func (d *CompoundFileDirectory) RenameFile(source, dest string) error {
	return newUnsupportedOperationError("RenameFile", d)
}

/* Returns the length of a file in the directory. */
func (d *CompoundFileDirectory) FileLength(name string) (n int64, err error) {
	if err = d.EnsureOpen(); err != nil {
		return 0, err
	}
	if d.writer != nil {
		if n, ok := d.writer.fileLength(name); ok {
			return n, nil
		}
		return 0, newFileNotFoundError(name, d)
	}
	entry, err := d.entry(name)
	if err != nil {
		return 0, err
	}
	return entry.Length, nil
}

func (d *CompoundFileDirectory) CreateOutput(name string, context IOContext) (out IndexOutput, err error) {
	if err = d.EnsureOpen(); err != nil {
		return nil, err
	}
	if d.writer == nil {
		return nil, newUnsupportedOperationError("CreateOutput", d)
	}
	return d.writer.createOutput(name, context)
}

/* Not implemented */
func (d *CompoundFileDirectory) Sync(names []string) error {
	return newUnsupportedOperationError("Sync", d)
}

/* Not implemented */
func (d *CompoundFileDirectory) MakeLock(name string) (Lock, error) {
	return nil, newUnsupportedOperationError("MakeLock", d)
}

/* Not implemented */
func (d *CompoundFileDirectory) ClearLock(name string) error {
	return newUnsupportedOperationError("ClearLock", d)
}

/*
Serves slices of one sub-file off the shared handle. Closing the
slicer is a no-op; the handle belongs to this directory.
*/
func (d *CompoundFileDirectory) CreateSlicer(name string, context IOContext) (IndexInputSlicer, error) {
	if err := d.EnsureOpen(); err != nil {
		return nil, err
	}
	if d.openForWrite {
		return nil, newUnsupportedOperationError("CreateSlicer", d)
	}
	entry, err := d.entry(name)
	if err != nil {
		return nil, err
	}
	return &compoundSlicer{d.handle, entry, name}, nil
}

type compoundSlicer struct {
	handle IndexInput
	entry  FileEntry
	name   string
}

func (s *compoundSlicer) OpenSlice(desc string, offset, length int64) (IndexInput, error) {
	if offset < 0 || length < 0 || offset+length > s.entry.Length {
		return nil, errors.Errorf("slice() %v out of bounds of %v: offset=%v,length=%v,entryLength=%v",
			desc, s.name, offset, length, s.entry.Length)
	}
	return s.handle.Slice(desc, s.entry.Offset+offset, length)
}

func (s *compoundSlicer) Close() error {
	return nil
}

// Format version of the opened compound file.
func (d *CompoundFileDirectory) Version() int32 {
	return d.version
}

// True if the compound file predates the versioned format and has no
// entry table or footer.
func (d *CompoundFileDirectory) Legacy() bool {
	return d.legacy
}

func (d *CompoundFileDirectory) String() string {
	return fmt.Sprintf("CompoundFileDirectory(file=\"%v\" in dir=%v)", d.fileName, d.directory)
}
