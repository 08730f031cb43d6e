package metadata

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source is one image payload plus the name it should be displayed under.
// Callers own Data for the duration of an extraction and must not mutate it.
type Source struct {
	Name string
	Data []byte
}

// Empty reports whether there is nothing to extract from.
func (s Source) Empty() bool { return len(s.Data) == 0 }

// ErrTooLarge is returned by ReadFile when the payload exceeds the limit.
type ErrTooLarge struct {
	Path  string
	Limit int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("%s exceeds the %d byte read limit", e.Path, e.Limit)
}

// ReadFile loads a Source from disk. A non-positive limit disables the cap.
func ReadFile(path string, limit int64) (Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return Source{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if limit > 0 {
		reader = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return Source{}, fmt.Errorf("read %s: %w", path, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return Source{}, &ErrTooLarge{Path: path, Limit: limit}
	}
	return Source{Name: filepath.Base(path), Data: data}, nil
}
