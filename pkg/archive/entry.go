package archive

import (
	digest "github.com/opencontainers/go-digest"
)

// Compression names the codec an entry payload is stored with.
type Compression string

const (
	CompressionNone    Compression = "none"
	CompressionZlib    Compression = "zlib"
	CompressionDeflate Compression = "deflate"
	CompressionZstd    Compression = "zstd"
	CompressionChunked Compression = "chunked"
)

// Entry locates one asset inside an archive. Entries are produced by a
// driver at open time and never change afterwards.
type Entry struct {
	// Path is the normalized logical path.
	Path string
	// Offset of the stored payload from the start of the archive.
	Offset int64
	// StoredSize is the payload length on disk.
	StoredSize int64
	// Size is the decompressed payload length.
	Size int64
	// Compression of the stored payload.
	Compression Compression
	// Digest of the decompressed payload, verified on read when set.
	Digest digest.Digest
}

// Compressed reports whether the payload needs decoding.
func (e Entry) Compressed() bool {
	return e.Compression != "" && e.Compression != CompressionNone
}

// Ext returns the entry extension without the leading dot.
func (e Entry) Ext() string {
	return Ext(e.Path)
}
