package store

import (
	"fmt"
	"sort"
	"sync"
)

// store/TrackingDirectoryWrapper.java

/*
A delegating Directory that records which files were written to and
deleted.
*/
type TrackingDirectoryWrapper struct {
	Directory
	sync.Locker
	createdFilenames map[string]bool // synchronized
}

func NewTrackingDirectoryWrapper(other Directory) *TrackingDirectoryWrapper {
	return &TrackingDirectoryWrapper{
		Directory:        other,
		Locker:           &sync.Mutex{},
		createdFilenames: make(map[string]bool),
	}
}

func (w *TrackingDirectoryWrapper) DeleteFile(name string) error {
	w.Lock()
	delete(w.createdFilenames, name)
	w.Unlock()
	return w.Directory.DeleteFile(name)
}

func (w *TrackingDirectoryWrapper) CreateOutput(name string, ctx IOContext) (IndexOutput, error) {
	out, err := w.Directory.CreateOutput(name, ctx)
	if err != nil {
		return nil, err
	}
	w.Lock()
	w.createdFilenames[name] = true
	w.Unlock()
	return out, nil
}

func (w *TrackingDirectoryWrapper) RenameFile(source, dest string) error {
	if err := w.Directory.RenameFile(source, dest); err != nil {
		return err
	}
	w.Lock()
	defer w.Unlock()
	if w.createdFilenames[source] {
		delete(w.createdFilenames, source)
		w.createdFilenames[dest] = true
	}
	return nil
}

func (w *TrackingDirectoryWrapper) String() string {
	return fmt.Sprintf("TrackingDirectoryWrapper(%v)", w.Directory)
}

func (w *TrackingDirectoryWrapper) Copy(to Directory, src, dest string, ctx IOContext) error {
	w.Lock()
	w.createdFilenames[dest] = true
	w.Unlock()
	return w.Directory.Copy(to, src, dest, ctx)
}

func (w *TrackingDirectoryWrapper) EachCreatedFiles(f func(name string)) {
	for _, name := range w.CreatedFiles() {
		f(name)
	}
}

/* Returns the names created through this wrapper and not deleted since, sorted. */
func (w *TrackingDirectoryWrapper) CreatedFiles() []string {
	w.Lock()
	defer w.Unlock()
	names := make([]string, 0, len(w.createdFilenames))
	for name := range w.createdFilenames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (w *TrackingDirectoryWrapper) ContainsFile(name string) bool {
	w.Lock()
	defer w.Unlock()
	return w.createdFilenames[name]
}
