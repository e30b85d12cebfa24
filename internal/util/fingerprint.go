package util

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// FileFingerprint identifies a file revision by size, modification time and
// a CRC32 of its last 2KB.
type FileFingerprint struct {
	Size    int64
	ModTime int64
	Tail    string
}

// CalculateFileFingerprint calculates the fingerprint of the file at path
func CalculateFileFingerprint(path string) (FileFingerprint, error) {
	file, err := os.Open(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return FileFingerprint{}, err
	}

	size := stat.Size()
	readSize := int64(2048)
	if size < readSize {
		readSize = size
	}

	if _, err := file.Seek(-readSize, io.SeekEnd); err != nil {
		return FileFingerprint{}, err
	}

	data := make([]byte, readSize)
	if _, err := io.ReadFull(file, data); err != nil {
		return FileFingerprint{}, err
	}

	return FileFingerprint{
		Size:    size,
		ModTime: stat.ModTime().UnixNano(),
		Tail:    fmt.Sprintf("%08x", crc32.ChecksumIEEE(data)),
	}, nil
}
