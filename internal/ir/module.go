package ir

import (
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"
)

// Data is a read-only module data object: string literal bytes or the word
// table of a class descriptor.
type Data struct {
	Name  string
	Bytes []byte
	Words []int64 // set instead of Bytes for word tables
}

// Len returns the size of the object in bytes.
func (d *Data) Len() int {
	if d.Words != nil {
		return len(d.Words) * 8
	}
	return len(d.Bytes)
}

// Contents returns the object as little-endian bytes.
func (d *Data) Contents() []byte {
	if d.Words == nil {
		return d.Bytes
	}
	buf := make([]byte, len(d.Words)*8)
	for i, w := range d.Words {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(w))
	}
	return buf
}

// Module is a whole compiled program.
type Module struct {
	Funcs []*Func
	Data  []*Data

	// Libs lists the shared libraries named by extern blocks, in
	// declaration order without duplicates.
	Libs []string

	// Entry names the function that runs top-level statements.
	Entry string

	funcs map[string]*Func
	data  map[string]*Data
}

// NewModule returns an empty module.
func NewModule() *Module {
	return &Module{
		funcs: make(map[string]*Func),
		data:  make(map[string]*Data),
	}
}

// AddFunc adds f to the module. Names must be unique.
func (m *Module) AddFunc(f *Func) error {
	if _, dup := m.funcs[f.Name]; dup {
		return errors.Errorf("duplicate function %s", f.Name)
	}
	m.funcs[f.Name] = f
	m.Funcs = append(m.Funcs, f)
	return nil
}

// Func returns the function with the given name, or nil.
func (m *Module) Func(name string) *Func {
	return m.funcs[name]
}

// AddData adds a data object, reusing an existing one with the same name.
func (m *Module) AddData(d *Data) *Data {
	if old, ok := m.data[d.Name]; ok {
		return old
	}
	m.data[d.Name] = d
	m.Data = append(m.Data, d)
	return d
}

// DataObject returns the data object with the given name, or nil.
func (m *Module) DataObject(name string) *Data {
	return m.data[name]
}

// AddLib records a library dependency.
func (m *Module) AddLib(path string) {
	for _, l := range m.Libs {
		if l == path {
			return
		}
	}
	m.Libs = append(m.Libs, path)
}

// RuntimeSymbols returns the sorted set of runtime symbols referenced by
// OpCallRT values anywhere in the module.
func (m *Module) RuntimeSymbols() []string {
	seen := make(map[string]bool)
	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			for _, v := range b.Values {
				if v.Op == OpCallRT {
					seen[v.Callee()] = true
				}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
