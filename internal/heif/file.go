package heif

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File is an uploaded image: its original name and raw bytes.
type File struct {
	Name string
	Data []byte
}

// ReadFile loads path into a File named after its base name.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}

// Size reports the byte length of the upload.
func (f File) Size() int { return len(f.Data) }

// BaseName strips the extension from the file name; empty names map to "image".
func (f File) BaseName() string {
	name := strings.TrimSpace(filepath.Base(f.Name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "image"
	}
	if ext := filepath.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}
