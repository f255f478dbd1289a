/*
cfstool inspects, verifies, extracts and builds compound files.

	cfstool list <dir> <name.cfs>
	cfstool verify <dir> <name.cfs>
	cfstool extract <dir> <name.cfs> <out> [entry...]
	cfstool pack <src> <dir> <name.cfs> [file...]

Directories are opened as configured by an optional TOML file:

	directory = "mmap"          # mmap, simple or ram-copy
	chunk_size_power = 28       # mmap chunk size, 0 for the default
	lock_factory = "native"     # native, simple, single or none
	max_write_mb_per_sec = 0.0  # pack output limit, 0 for unlimited
	read_buffer = "read"        # read, readonce or merge
*/
package main

import (
	"os"

	"github.com/op/go-logging"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

var log = logging.MustGetLogger("cfstool")

var (
	app        = kingpin.New("cfstool", "Inspect and build compound files")
	verbose    = app.Flag("verbose", "Log debug output to stderr").Short('v').Bool()
	configPath = app.Flag("config", "TOML file configuring how directories are opened").ExistingFile()

	listCmd  = app.Command("list", "List the entries of a compound file")
	listDir  = listCmd.Arg("dir", "Directory holding the compound file").Required().String()
	listName = listCmd.Arg("name", "Compound file name, e.g. _0.cfs").Required().String()

	verifyCmd  = app.Command("verify", "Verify the checksums of a compound file and its entries")
	verifyDir  = verifyCmd.Arg("dir", "Directory holding the compound file").Required().String()
	verifyName = verifyCmd.Arg("name", "Compound file name, e.g. _0.cfs").Required().String()

	extractCmd     = app.Command("extract", "Copy entries out of a compound file")
	extractDir     = extractCmd.Arg("dir", "Directory holding the compound file").Required().String()
	extractName    = extractCmd.Arg("name", "Compound file name, e.g. _0.cfs").Required().String()
	extractOut     = extractCmd.Arg("out", "Directory to extract into").Required().String()
	extractEntries = extractCmd.Arg("entries", "Entries to extract, all by default").Strings()

	packCmd   = app.Command("pack", "Pack the files of a segment into a new compound file")
	packSrc   = packCmd.Arg("src", "Directory holding the files to pack").Required().ExistingDir()
	packDir   = packCmd.Arg("dir", "Directory to write the compound file to").Required().String()
	packName  = packCmd.Arg("name", "Compound file name, e.g. _0.cfs").Required().String()
	packFiles = packCmd.Arg("files", "Files to pack, every file of the segment by default").Strings()
)

func setupLogging(verbose bool) {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(
		"%{time:15:04:05.000} %{module} %{level:.4s} %{message}"))
	leveled := logging.AddModuleLevel(formatted)
	if verbose {
		leveled.SetLevel(logging.DEBUG, "")
	} else {
		leveled.SetLevel(logging.WARNING, "")
	}
	logging.SetBackend(leveled)
}

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))
	setupLogging(*verbose)

	cfg, err := loadConfig(*configPath)
	must(err)

	switch cmd {
	case listCmd.FullCommand():
		must(doList(os.Stdout, cfg, *listDir, *listName))
	case verifyCmd.FullCommand():
		must(doVerify(os.Stdout, cfg, *verifyDir, *verifyName))
	case extractCmd.FullCommand():
		must(doExtract(os.Stdout, cfg, *extractDir, *extractName, *extractOut, *extractEntries))
	case packCmd.FullCommand():
		must(doPack(os.Stdout, cfg, *packSrc, *packDir, *packName, *packFiles))
	}
}
