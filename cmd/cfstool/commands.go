package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/balzaczyy/gostore/core/codec"
	"github.com/balzaczyy/gostore/core/store"
	"github.com/balzaczyy/gostore/core/util"
	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

const WRITE_LOCK_NAME = "write.lock"

// How long pack waits for the write lock, in milliseconds.
var lockWaitTimeout int64 = 1000

func openCompound(cfg *Config, dirPath, name string) (store.Directory, *store.CompoundFileDirectory, error) {
	dir, err := cfg.openReadDirectory(dirPath)
	if err != nil {
		return nil, nil, err
	}
	cfs, err := store.NewCompoundFileDirectory(dir, name, cfg.readContext(), false)
	if err != nil {
		return nil, nil, util.CloseWhileHandlingError(err, dir)
	}
	return dir, cfs, nil
}

func sortedEntries(cfs *store.CompoundFileDirectory) ([]string, error) {
	names, err := cfs.ListAll()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func doList(w io.Writer, cfg *Config, dirPath, name string) (err error) {
	dir, cfs, err := openCompound(cfg, dirPath, name)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, cfs, dir)
	}()

	names, err := sortedEntries(cfs)
	if err != nil {
		return err
	}
	var total int64
	for _, entry := range names {
		n, err := cfs.FileLength(entry)
		if err != nil {
			return err
		}
		total += n
		fmt.Fprintf(w, "%-30s %12d %10s\n", entry, n, humanize.IBytes(uint64(n)))
	}
	format := fmt.Sprintf("version %v", cfs.Version())
	if cfs.Legacy() {
		format = "legacy"
	}
	fmt.Fprintf(w, "%v entries, %v (%v)\n", len(names), humanize.IBytes(uint64(total)), format)
	return nil
}

/* Copies the named entries, or all of them, into outPath. */
func doExtract(w io.Writer, cfg *Config, dirPath, name, outPath string, entries []string) (err error) {
	dir, cfs, err := openCompound(cfg, dirPath, name)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, cfs, dir)
	}()

	if len(entries) == 0 {
		if entries, err = sortedEntries(cfs); err != nil {
			return err
		}
	}
	out, err := store.NewSimpleFSDirectory(outPath, store.NoLockFactoryInstance())
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, out)
	}()

	for _, entry := range entries {
		if err = cfs.Copy(out, entry, entry, cfg.readContext()); err != nil {
			return errors.Wrapf(err, "extracting %v", entry)
		}
		n, err := out.FileLength(entry)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "extracted %v (%v)\n", entry, humanize.IBytes(uint64(n)))
	}
	return out.Sync(entries)
}

/*
Packs the named files of srcPath into a new compound file name in
dirPath. Without names, every file of the compound file's segment is
packed. The write lock of dirPath is held while packing.
*/
func doPack(w io.Writer, cfg *Config, srcPath, dirPath, name string, files []string) (err error) {
	if filepath.Ext(name) != "."+store.COMPOUND_FILE_EXTENSION {
		return errors.Errorf("compound file name must end with .%v: %v", store.COMPOUND_FILE_EXTENSION, name)
	}
	src, err := store.NewSimpleFSDirectory(srcPath, store.NoLockFactoryInstance())
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, src)
	}()
	segment := util.ParseSegmentName(name)
	if len(files) == 0 {
		if files, err = segmentFiles(src, segment); err != nil {
			return err
		}
	}
	if len(files) == 0 {
		return errors.Errorf("nothing of segment %v to pack in %v", segment, srcPath)
	}
	for _, file := range files {
		// entries are stored by their id, the name without the segment
		if util.ParseSegmentName(file) != segment {
			return errors.Errorf("%v does not belong to segment %v", file, segment)
		}
	}

	dir, err := cfg.openWriteDirectory(dirPath)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, dir)
	}()
	lock, err := dir.MakeLock(WRITE_LOCK_NAME)
	if err != nil {
		return err
	}

	entriesName := util.SegmentFileName(util.StripExtension(name), "", store.COMPOUND_FILE_ENTRIES_EXTENSION)
	return store.WithLock(lock, lockWaitTimeout, func() error {
		for _, existing := range []string{name, entriesName} {
			if ok, err := dir.FileExists(existing); err != nil {
				return err
			} else if ok {
				return errors.Errorf("%v already exists in %v", existing, dirPath)
			}
		}
		cfs, err := store.NewCompoundFileDirectory(dir, name, store.IO_CONTEXT_DEFAULT, true)
		if err != nil {
			return err
		}
		for _, file := range files {
			if err = src.Copy(cfs, file, file, store.IO_CONTEXT_DEFAULT); err != nil {
				err = errors.Wrapf(err, "packing %v", file)
				return util.CloseWhileHandlingError(err, cfs)
			}
			log.Debugf("Packed %v", file)
		}
		if err = cfs.Close(); err != nil {
			return err
		}
		if err = dir.Sync([]string{name, entriesName}); err != nil {
			return err
		}
		n, err := dir.FileLength(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "packed %v files into %v (%v)\n", len(files), name, humanize.IBytes(uint64(n)))
		return nil
	})
}

/*
Checks the footers of the compound file and of every entry that
carries one, and reads every other entry through. Returns an error
naming the number of bad files, if any.
*/
func doVerify(w io.Writer, cfg *Config, dirPath, name string) (err error) {
	dir, cfs, err := openCompound(cfg, dirPath, name)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, cfs, dir)
	}()

	bad := 0
	report := func(file string, checksum int64, hasFooter bool, err error) {
		switch {
		case err != nil:
			bad++
			fmt.Fprintf(w, "FAIL %v: %v\n", file, err)
		case hasFooter:
			fmt.Fprintf(w, "OK   %v checksum=%08x\n", file, checksum)
		default:
			fmt.Fprintf(w, "OK   %v (no footer)\n", file)
		}
	}

	if !cfs.Legacy() {
		entriesName := util.SegmentFileName(util.StripExtension(name), "", store.COMPOUND_FILE_ENTRIES_EXTENSION)
		for _, file := range []string{name, entriesName} {
			checksum, err := verifyFile(dir, file, cfg.readContext(), true)
			report(file, checksum, true, err)
		}
	}

	names, err := sortedEntries(cfs)
	if err != nil {
		return err
	}
	for _, entry := range names {
		in, err := cfs.OpenInput(entry, cfg.readContext())
		if err != nil {
			report(entry, 0, false, err)
			continue
		}
		hasFooter, err := endsWithFooter(in)
		util.CloseWhileSuppressingError(in)
		if err != nil {
			report(entry, 0, false, err)
			continue
		}
		checksum, err := verifyFile(cfs, entry, cfg.readContext(), hasFooter)
		report(entry, checksum, hasFooter, err)
	}
	if bad > 0 {
		return errors.Errorf("%v: %v bad files", name, bad)
	}
	return nil
}

func verifyFile(dir store.Directory, file string, ctx store.IOContext, hasFooter bool) (checksum int64, err error) {
	in, err := dir.OpenInput(file, ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, in)
	}()
	if hasFooter {
		return store.ChecksumEntireFile(in)
	}
	return 0, in.SkipBytes(in.Length())
}

func endsWithFooter(in store.IndexInput) (bool, error) {
	if in.Length() < codec.FOOTER_LENGTH {
		return false, nil
	}
	if err := in.Seek(in.Length() - codec.FOOTER_LENGTH); err != nil {
		return false, err
	}
	magic, err := in.ReadInt()
	if err != nil {
		return false, err
	}
	return magic == int32(codec.FOOTER_MAGIC), nil
}

func segmentFiles(dir store.Directory, segment string) ([]string, error) {
	names, err := dir.ListAll()
	if err != nil {
		return nil, err
	}
	var files []string
	for _, file := range names {
		switch util.FileExtension(file) {
		case store.COMPOUND_FILE_EXTENSION, store.COMPOUND_FILE_ENTRIES_EXTENSION:
			continue
		}
		if util.ParseSegmentName(file) == segment {
			files = append(files, file)
		}
	}
	sort.Strings(files)
	return files, nil
}

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "cfstool: %v\n", err)
		log.Debugf("%+v", err)
		os.Exit(1)
	}
}
