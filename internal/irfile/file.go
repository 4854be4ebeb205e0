package irfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"spvregular/internal/ir"
)

// WriteFile stores m at path. The file is written next to its destination
// and renamed into place, so readers never see a partial snapshot.
func WriteFile(path string, m *ir.Module) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".tmp-*.mp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				err = errors.Join(err, rmErr)
			}
		}
	}()
	if err = Encode(f, m); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ReadFile loads the module stored at path.
func ReadFile(path string) (m *ir.Module, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()
	m, err = Decode(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m, nil
}
