package pipeline

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

const hashChunkSize = 1 << 20 // 1 MiB

// fingerprintMatches reports whether an existing video row's (size, mtime)
// already matches the file on disk, letting the fast path skip hashing
// entirely.
func fingerprintMatches(info os.FileInfo, existingSize int64, existingMTime int64) bool {
	return info.Size() == existingSize && info.ModTime().Unix() == existingMTime
}

// contentHash hashes the first and last 1 MiB of a file plus its size with
// xxhash64, cheap enough to run on every changed file while still catching
// renames: a file that only moved keeps an identical hash.
func contentHash(path string, size int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("content hash: open %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	buf := make([]byte, hashChunkSize)

	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("content hash: read head of %s: %w", path, err)
	}
	h.Write(buf[:n])

	if size > hashChunkSize {
		if _, err := f.Seek(-hashChunkSize, io.SeekEnd); err != nil {
			return "", fmt.Errorf("content hash: seek tail of %s: %w", path, err)
		}
		n, err = io.ReadFull(f, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return "", fmt.Errorf("content hash: read tail of %s: %w", path, err)
		}
		h.Write(buf[:n])
	}

	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], uint64(size))
	h.Write(sizeBuf[:])

	return fmt.Sprintf("%016x", h.Sum64()), nil
}
