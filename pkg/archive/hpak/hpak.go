// Package hpak implements the hashed-index archive driver.
//
// An hpak archive is laid out little-endian as:
//
//	header  32 bytes: "HPAK" | version u32 | count u32 | reserved u32
//	                  | table offset u64 | names offset u64
//	table   count records of 32 bytes sorted by hash:
//	        hash u64 | offset u64 | stored u32 | size u32 | flags u32 | name u32
//	names   NUL terminated logical paths
//
// The hash is xxhash64 of the normalized logical path. Flag bit 0 marks a
// zlib compressed payload.
package hpak

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

const (
	// Name of the driver.
	Name = "hpak"

	// Version is the only supported format version.
	Version = 1

	headerSize = 32
	recordSize = 32

	flagZlib = 1 << 0

	// maxEntries and maxNames bound allocations for hostile headers.
	maxEntries = 1 << 22
	maxNames   = 64 << 20
)

// Magic identifies hpak archives.
var Magic = []byte("HPAK")

func init() {
	archive.MustRegister(Driver{})
}

// Driver reads hpak archives.
type Driver struct{}

// Name returns the driver name.
func (Driver) Name() string { return Name }

// Extensions returns the fallback file extensions.
func (Driver) Extensions() []string { return []string{"hpak", "hpk"} }

// Match checks the magic bytes.
func (Driver) Match(header []byte) bool {
	return bytes.HasPrefix(header, Magic)
}

// Hash returns the index hash of a logical path. The path is normalized
// first so lookups are case and separator insensitive.
func Hash(p string) uint64 {
	if clean, ok := archive.CleanPath(p); ok {
		p = clean
	}
	return xxhash.Sum64String(p)
}

type header struct {
	Magic       [4]byte
	Version     uint32
	Count       uint32
	Reserved    uint32
	TableOffset uint64
	NamesOffset uint64
}

type record struct {
	Hash       uint64
	Offset     uint64
	StoredSize uint32
	Size       uint32
	Flags      uint32
	NameOffset uint32
}

// Index parses the header, hash table and name block.
func (d Driver) Index(ctx context.Context, r io.ReaderAt, size int64) ([]archive.Entry, error) {
	var hdr header
	if err := binary.Read(io.NewSectionReader(r, 0, headerSize), binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrapf(archive.ErrCorruptArchive, "reading header: %v", err)
	}
	if !bytes.Equal(hdr.Magic[:], Magic) {
		return nil, errors.Wrap(archive.ErrCorruptArchive, "bad magic")
	}
	if hdr.Version != Version {
		return nil, errors.Errorf("unsupported hpak version %d", hdr.Version)
	}
	if hdr.Count > maxEntries {
		return nil, errors.Wrapf(archive.ErrCorruptArchive, "too many entries (%d)", hdr.Count)
	}
	tableSize := uint64(hdr.Count) * recordSize
	if hdr.TableOffset+tableSize > uint64(size) || hdr.NamesOffset > uint64(size) {
		return nil, errors.Wrap(archive.ErrCorruptArchive, "table out of bounds")
	}
	if uint64(size)-hdr.NamesOffset > maxNames {
		return nil, errors.Wrap(archive.ErrCorruptArchive, "name block too large")
	}

	names := make([]byte, uint64(size)-hdr.NamesOffset)
	if _, err := r.ReadAt(names, int64(hdr.NamesOffset)); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "reading names")
	}

	records := make([]record, hdr.Count)
	if err := binary.Read(io.NewSectionReader(r, int64(hdr.TableOffset), int64(tableSize)), binary.LittleEndian, records); err != nil {
		return nil, errors.Wrapf(archive.ErrCorruptArchive, "reading table: %v", err)
	}

	entries := make([]archive.Entry, 0, len(records))
	for i, rec := range records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if i > 0 && rec.Hash < records[i-1].Hash {
			return nil, errors.Wrapf(archive.ErrCorruptArchive, "table not sorted at record %d", i)
		}
		name, err := cstring(names, rec.NameOffset)
		if err != nil {
			return nil, errors.Wrapf(archive.ErrCorruptArchive, "record %d: %v", i, err)
		}
		if Hash(name) != rec.Hash {
			return nil, errors.Wrapf(archive.ErrCorruptArchive, "record %d: hash mismatch for %q", i, name)
		}
		if rec.Offset+uint64(rec.StoredSize) > uint64(size) {
			return nil, errors.Wrapf(archive.ErrCorruptArchive, "record %d: payload out of bounds", i)
		}
		e := archive.Entry{
			Path:        name,
			Offset:      int64(rec.Offset),
			StoredSize:  int64(rec.StoredSize),
			Size:        int64(rec.Size),
			Compression: archive.CompressionNone,
		}
		if rec.Flags&flagZlib != 0 {
			e.Compression = archive.CompressionZlib
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Open returns the payload of e, inflating zlib entries.
func (d Driver) Open(r io.ReaderAt, e archive.Entry) (io.ReadCloser, error) {
	section := io.NewSectionReader(r, e.Offset, e.StoredSize)
	switch e.Compression {
	case archive.CompressionNone, "":
		return io.NopCloser(section), nil
	case archive.CompressionZlib:
		zr, err := zlib.NewReader(section)
		if err != nil {
			return nil, errors.Wrap(err, "zlib")
		}
		return zr, nil
	default:
		return nil, errors.Errorf("unsupported compression %s", e.Compression)
	}
}

// lookup finds p in entries sorted by hash, as returned by Index.
func lookup(entries []archive.Entry, p string) (archive.Entry, bool) {
	clean, ok := archive.CleanPath(p)
	if !ok {
		return archive.Entry{}, false
	}
	h := Hash(clean)
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if Hash(entries[mid].Path) < h {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	for i := lo; i < len(entries) && Hash(entries[i].Path) == h; i++ {
		if entries[i].Path == clean {
			return entries[i], true
		}
	}
	return archive.Entry{}, false
}

func cstring(block []byte, off uint32) (string, error) {
	if uint64(off) >= uint64(len(block)) {
		return "", errors.Errorf("name offset %d out of bounds", off)
	}
	end := bytes.IndexByte(block[off:], 0)
	if end < 0 {
		return "", errors.New("unterminated name")
	}
	return string(block[off : int(off)+end]), nil
}
