//go:build !unix

package source

// openMapped falls back to x/exp/mmap where unix.Mmap is unavailable.
func openMapped(path string) (Source, error) {
	return openReaderAt(path)
}
