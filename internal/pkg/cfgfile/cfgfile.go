// Package cfgfile reads and writes a single settings file with a pluggable
// encoding.
package cfgfile

import (
	"os"
	"path/filepath"

	"github.com/ansel1/merry"
)

type MarshalFunc = func(in interface{}) (out []byte, err error)
type UnmarshalFunc = func(in []byte, out interface{}) error

type F struct {
	filename  string
	marshal   MarshalFunc
	unmarshal UnmarshalFunc
}

// New returns the file filename. A relative filename is resolved against
// the directory of the executable.
func New(filename string, marshal MarshalFunc, unmarshal UnmarshalFunc) *F {
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(filepath.Dir(os.Args[0]), filename)
	}
	return &F{
		filename:  filename,
		marshal:   marshal,
		unmarshal: unmarshal,
	}
}

func (x *F) Set(in interface{}) error {
	data, err := x.marshal(in)
	if err != nil {
		return x.err(err)
	}
	if err := os.WriteFile(x.filename, data, 0666); err != nil {
		return x.err(err)
	}
	return nil
}

// Get decodes the file into out. A missing file is reported with
// os.IsNotExist semantics preserved.
func (x *F) Get(out interface{}) error {
	data, err := os.ReadFile(x.filename)
	if err != nil {
		return err
	}
	if err := x.unmarshal(data, out); err != nil {
		return x.err(err)
	}
	return nil
}

func (x *F) err(err error) error {
	return merry.Append(err, x.filename)
}

func (x *F) Filename() string {
	return x.filename
}
