package store

import (
	"errors"
	"slices"
	"sync"
)

var errNotHeld = errors.New("release of a file that is not held")

// Files tracks the open source files of a backend. A file is open while it
// has at least one reference: an open dataset or a hold.
type Files struct {
	mu   sync.Mutex
	open map[string]*File
}

// File is one open source file.
type File struct {
	name  string
	files *Files
	refs  int
}

// Acquire returns the open file called name, opening it if needed, and
// takes a reference on it.
func (fs *Files) Acquire(name string) *File {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.open == nil {
		fs.open = make(map[string]*File)
	}
	f, ok := fs.open[name]
	if !ok {
		f = &File{name: name, files: fs}
		fs.open[name] = f
	}
	f.refs++
	return f
}

// Open reports the names of the currently open files, sorted.
func (fs *Files) Open() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	names := make([]string, 0, len(fs.open))
	for name := range fs.open {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsOpen reports whether name is open.
func (fs *Files) IsOpen(name string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.open[name]
	return ok
}

// Name returns the name the file was opened under.
func (f *File) Name() string { return f.name }

// Hold pins the file open until the matching Release.
func (f *File) Hold() {
	f.files.mu.Lock()
	defer f.files.mu.Unlock()
	f.refs++
}

// Release drops one reference and closes the file when none remain.
func (f *File) Release() error {
	f.files.mu.Lock()
	defer f.files.mu.Unlock()
	if f.refs == 0 {
		return errNotHeld
	}
	f.refs--
	if f.refs == 0 {
		delete(f.files.open, f.name)
	}
	return nil
}
