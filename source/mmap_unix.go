//go:build unix

package source

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type mapped struct {
	Memory
}

func openMapped(path string) (Source, error) {
	f, size, err := statRegular(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if size == 0 {
		return &mapped{}, nil
	}

	if int64(int(size)) != size {
		return nil, fmt.Errorf("%w: %s: file too large to map", ErrUnreadable, path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, openError(path, err)
	}

	return &mapped{Memory{data: data}}, nil
}

// Close unmaps the file. Views handed out by Bytes are invalid afterwards.
func (m *mapped) Close() error {
	if m.data == nil {
		return nil
	}

	err := unix.Munmap(m.data)
	m.data = nil
	return err
}
