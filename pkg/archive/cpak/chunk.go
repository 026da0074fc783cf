package cpak

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// ChunkTag identifies the codec of one chunk. Values are stored on disk.
type ChunkTag uint8

const (
	ChunkRaw  ChunkTag = 0
	ChunkLZ4  ChunkTag = 1
	ChunkZstd ChunkTag = 2
)

const (
	chunkHeaderSize = 9

	// DefaultChunkSize is the uncompressed size of a full chunk.
	DefaultChunkSize = 64 << 10

	// maxChunkSize bounds the allocation for one chunk.
	maxChunkSize = 16 << 20

	maxDecoderMemory = 256 << 20
)

func (t ChunkTag) String() string {
	switch t {
	case ChunkRaw:
		return "raw"
	case ChunkLZ4:
		return "lz4"
	case ChunkZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseChunkTag parses a codec name.
func ParseChunkTag(name string) (ChunkTag, error) {
	switch name {
	case "raw", "none":
		return ChunkRaw, nil
	case "lz4":
		return ChunkLZ4, nil
	case "zstd":
		return ChunkZstd, nil
	default:
		return 0, errors.Errorf("unknown chunk codec %q", name)
	}
}

// zstd encoder and decoder are safe for concurrent use with EncodeAll and
// DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	if zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault)); err != nil {
		panic("cpak: zstd encoder initialization failed: " + err.Error())
	}
	if zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecoderMemory)); err != nil {
		panic("cpak: zstd decoder initialization failed: " + err.Error())
	}
}

var errIncompressible = errors.New("incompressible chunk")

func compressChunk(data []byte, tag ChunkTag) ([]byte, error) {
	switch tag {
	case ChunkRaw:
		return data, nil
	case ChunkLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, errors.Wrap(err, "lz4 compress")
		}
		if n == 0 || n >= len(data) {
			return nil, errIncompressible
		}
		return dst[:n], nil
	case ChunkZstd:
		out := zstdEncoder.EncodeAll(data, nil)
		if len(out) >= len(data) {
			return nil, errIncompressible
		}
		return out, nil
	default:
		return nil, errors.Errorf("unsupported chunk codec %s", tag)
	}
}

func decompressChunk(src []byte, tag ChunkTag, size int) ([]byte, error) {
	switch tag {
	case ChunkRaw:
		if len(src) != size {
			return nil, errors.Errorf("raw chunk: size %d does not match %d", len(src), size)
		}
		return src, nil
	case ChunkLZ4:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, errors.Wrap(err, "lz4 decompress")
		}
		if n != size {
			return nil, errors.Errorf("lz4 decompress: got %d bytes, expected %d", n, size)
		}
		return dst, nil
	case ChunkZstd:
		dst, err := zstdDecoder.DecodeAll(src, make([]byte, 0, size))
		if err != nil {
			return nil, errors.Wrap(err, "zstd decompress")
		}
		if len(dst) != size {
			return nil, errors.Errorf("zstd decompress: got %d bytes, expected %d", len(dst), size)
		}
		return dst, nil
	default:
		return nil, errors.Errorf("unsupported chunk codec %s", tag)
	}
}

// chunkReader decodes the chunk sequence of one entry.
type chunkReader struct {
	r   io.Reader
	buf []byte
	err error
}

func (c *chunkReader) Read(p []byte) (int, error) {
	for len(c.buf) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		c.buf, c.err = c.next()
	}
	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

func (c *chunkReader) next() ([]byte, error) {
	var hdr [chunkHeaderSize]byte
	if _, err := io.ReadFull(c.r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "reading chunk header")
	}
	tag := ChunkTag(hdr[0])
	stored := binary.LittleEndian.Uint32(hdr[1:5])
	raw := binary.LittleEndian.Uint32(hdr[5:9])
	if stored > maxChunkSize || raw > maxChunkSize {
		return nil, errors.Errorf("chunk too large (%d stored, %d raw)", stored, raw)
	}
	src := make([]byte, stored)
	if _, err := io.ReadFull(c.r, src); err != nil {
		return nil, errors.Wrap(err, "reading chunk")
	}
	out, err := decompressChunk(src, tag, int(raw))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("empty chunk")
	}
	return out, nil
}

func writeChunk(w io.Writer, data []byte, tag ChunkTag) (int64, error) {
	payload, err := compressChunk(data, tag)
	if err == errIncompressible {
		payload, tag = data, ChunkRaw
	} else if err != nil {
		return 0, err
	}
	var hdr [chunkHeaderSize]byte
	hdr[0] = byte(tag)
	binary.LittleEndian.PutUint32(hdr[1:5], uint32(len(payload)))
	binary.LittleEndian.PutUint32(hdr[5:9], uint32(len(data)))
	if _, err := w.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := w.Write(payload); err != nil {
		return 0, err
	}
	return int64(chunkHeaderSize + len(payload)), nil
}
