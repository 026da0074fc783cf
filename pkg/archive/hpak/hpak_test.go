package hpak

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, compress bool, files ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, WithCompression(compress))
	require.NoError(t, err)
	for _, name := range files {
		require.NoError(t, w.Add(name, bytes.Repeat([]byte(name), 20)))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestIndex(t *testing.T) {
	b := build(t, true, "textures/rock.dds", "meshes/rock.obj", "Scenes/Cave.scene")
	entries, err := Driver{}.Index(context.Background(), bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, Hash(entries[i-1].Path), Hash(entries[i].Path))
	}

	e, ok := lookup(entries, `SCENES\cave.scene`)
	require.True(t, ok)
	assert.Equal(t, "scenes/cave.scene", e.Path)
	assert.Equal(t, archive.CompressionZlib, e.Compression)
	assert.Less(t, e.StoredSize, e.Size)

	rc, err := Driver{}.Open(bytes.NewReader(b), e)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte("scenes/cave.scene"), 20), data)

	_, ok = lookup(entries, "scenes/missing.scene")
	assert.False(t, ok)
}

func TestMatch(t *testing.T) {
	assert.True(t, Driver{}.Match([]byte("HPAK\x01\x00\x00\x00")))
	assert.False(t, Driver{}.Match([]byte("CPAK")))
	assert.False(t, Driver{}.Match(nil))
}

func TestHashNormalizes(t *testing.T) {
	assert.Equal(t, Hash("textures/rock.dds"), Hash(`Textures\ROCK.dds`))
	assert.NotEqual(t, Hash("textures/rock.dds"), Hash("textures/rock.tga"))
}

func TestIndexCorrupt(t *testing.T) {
	good := build(t, false, "a.txt", "b.txt")

	testCases := []struct {
		desc   string
		mutate func(b []byte)
	}{
		{
			desc: "bad magic",
			mutate: func(b []byte) {
				copy(b, "XPAK")
			},
		},
		{
			desc: "table out of bounds",
			mutate: func(b []byte) {
				binary.LittleEndian.PutUint64(b[16:24], uint64(len(b)))
			},
		},
		{
			desc: "hash mismatch",
			mutate: func(b []byte) {
				tableOffset := binary.LittleEndian.Uint64(b[16:24])
				b[tableOffset] ^= 0xff
			},
		},
	}
	for _, tt := range testCases {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			b := append([]byte(nil), good...)
			tt.mutate(b)
			_, err := Driver{}.Index(context.Background(), bytes.NewReader(b), int64(len(b)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, archive.ErrCorruptArchive))
		})
	}
}

func TestWriterRejectsDuplicates(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Add("a.txt", []byte("a")))
	assert.Error(t, w.Add("A.TXT", []byte("b")))
	assert.Error(t, w.Add("../escape.txt", []byte("c")))
}
