package history

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Load reads path, one line per entry, into r. A missing file is not an
// error. When the file holds more lines than r retains, the newest win.
func Load(fsys afero.Fs, path string, r *Ring) error {
	f, err := fsys.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		r.Record(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	return nil
}

// Save writes the retained entries of r to path, oldest first, replacing
// the file.
func Save(fsys afero.Fs, path string, r *Ring) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	var sb strings.Builder
	for _, e := range r.Entries() {
		sb.WriteString(e.Text)
		sb.WriteByte('\n')
	}
	if err := afero.WriteFile(fsys, path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
