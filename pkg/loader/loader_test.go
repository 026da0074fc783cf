package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/crazy-max/unpak/pkg/archive/hpak"
	"github.com/crazy-max/unpak/pkg/asset"
	"github.com/crazy-max/unpak/pkg/factory"
	"github.com/crazy-max/unpak/pkg/resolve"
	"github.com/crazy-max/unpak/pkg/transform"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func dds(width, height uint32) []byte {
	b := make([]byte, 128)
	copy(b, "DDS ")
	binary.LittleEndian.PutUint32(b[4:8], 124)
	binary.LittleEndian.PutUint32(b[12:16], height)
	binary.LittleEndian.PutUint32(b[16:20], width)
	copy(b[84:88], "DXT1")
	return b
}

func newLoader(t *testing.T, opts ...Option) *Loader {
	t.Helper()
	records, err := asset.EncodeRecords([]asset.Row{{"id": 1, "name": "sword"}})
	require.NoError(t, err)

	files := map[string][]byte{
		"textures/rock.dds":     dds(64, 32),
		"meshes/rock.obj":       []byte("o rock\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"),
		"meshes/crate.obj":      []byte("o crate\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"),
		"scenes/cave.scene":     []byte(`{"name": "cave", "nodes": [{"name": "rock", "mesh": "meshes/rock"}, {"name": "crate", "mesh": "crate"}]}`),
		"data/items.rec":        records,
		"data/thing.unknownext": []byte("opaque"),
		"meshes/broken.obj":     []byte("v 1 2\n"),
	}
	var buf bytes.Buffer
	w, err := hpak.NewWriter(&buf, hpak.WithCompression(true))
	require.NoError(t, err)
	for name, data := range files {
		require.NoError(t, w.Add(name, data))
	}
	require.NoError(t, w.Close())

	a, err := archive.OpenReader(context.Background(), "game.hpak", bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close()
	})

	reg := factory.New()
	require.NoError(t, asset.RegisterDefaults(reg))
	return New(a, append([]Option{WithFactory(reg)}, opts...)...)
}

func TestLoad(t *testing.T) {
	l := newLoader(t)

	testCases := []struct {
		desc     string
		base     string
		kind     resolve.Kind
		want     factory.Capability
		path     string
		expected any
		fallback bool
	}{
		{
			desc:     "texture next to mesh",
			base:     "meshes/rock",
			kind:     resolve.KindTexture,
			want:     asset.CapTexture,
			path:     "textures/rock.dds",
			expected: &asset.Texture{},
		},
		{
			desc:     "mesh",
			base:     "rock",
			kind:     resolve.KindMesh,
			path:     "meshes/rock.obj",
			expected: &asset.Mesh{},
		},
		{
			desc:     "scene",
			base:     "cave",
			kind:     resolve.KindScene,
			path:     "scenes/cave.scene",
			expected: &asset.Scene{},
		},
		{
			desc:     "records",
			base:     "items",
			kind:     resolve.KindRecord,
			path:     "data/items.rec",
			expected: &asset.Records{},
		},
		{
			desc:     "unknown extension",
			base:     "data/thing.unknownext",
			kind:     resolve.KindAny,
			path:     "data/thing.unknownext",
			expected: &asset.Blob{},
			fallback: true,
		},
	}
	for _, tt := range testCases {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			a, err := l.Load(context.Background(), tt.base, tt.kind, tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.path, a.Path)
			assert.Equal(t, tt.path, a.Object.Path())
			assert.Equal(t, tt.path, a.Entry.Path)
			assert.IsType(t, tt.expected, a.Object)
			assert.Equal(t, tt.fallback, a.Option.Fallback)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	l := newLoader(t)

	_, err := l.Load(context.Background(), "meshes/missing", resolve.KindTexture, asset.CapTexture)
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolve.ErrPathNotFound))
	assert.True(t, archive.IsNotFound(err))

	_, err = l.Load(context.Background(), "meshes/broken", resolve.KindMesh, "")
	require.Error(t, err)
	var ce *factory.ConstructionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "meshes/broken.obj", ce.Path)
	assert.Equal(t, "obj", ce.Ext)
}

func TestTransformScene(t *testing.T) {
	l := newLoader(t)
	a, err := l.Load(context.Background(), "cave", resolve.KindScene, "")
	require.NoError(t, err)
	require.True(t, l.CanTransform(a.Object, transform.TargetTexturedMesh))

	out, err := l.Transform(context.Background(), a.Object, transform.TargetTexturedMesh)
	require.NoError(t, err)
	model := out.(*transform.Model)
	require.Len(t, model.Nodes, 2)

	rock := model.Nodes[0]
	require.True(t, rock.Material.Textured())
	assert.Equal(t, "textures/rock.dds", rock.Material.Texture.Path())
	assert.Equal(t, 64, rock.Material.Texture.Width)

	crate := model.Nodes[1]
	assert.Equal(t, "meshes/crate.obj", crate.Mesh.Path())
	assert.False(t, crate.Material.Textured())
}

func TestTransformUnsupported(t *testing.T) {
	l := newLoader(t)
	a, err := l.Load(context.Background(), "data/thing.unknownext", resolve.KindAny, "")
	require.NoError(t, err)
	assert.False(t, l.CanTransform(a.Object, transform.TargetTexturedMesh))
	_, err = l.Transform(context.Background(), a.Object, transform.TargetTexturedMesh)
	assert.True(t, errors.Is(err, transform.ErrUnsupportedTransform))

	out, err := l.Transform(context.Background(), a.Object, transform.TargetUnknownFileModel)
	require.NoError(t, err)
	assert.Equal(t, int64(6), out.(*transform.UnknownFileModel).Size)
}

func TestWithRules(t *testing.T) {
	l := newLoader(t, WithRules(map[resolve.Kind]resolve.Rule{
		resolve.KindTexture: {Extensions: []string{"png"}, Locations: []string{"textures"}},
	}))
	_, ok := l.Resolve("meshes/rock", resolve.KindTexture)
	assert.False(t, ok)
	assert.Equal(t, []string{"textures/rock.png"}, l.Candidates("meshes/rock", resolve.KindTexture))
}

func TestConcurrentLoads(t *testing.T) {
	l := newLoader(t)
	eg, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 16; i++ {
		eg.Go(func() error {
			a, err := l.Load(ctx, "cave", resolve.KindScene, "")
			if err != nil {
				return err
			}
			_, err = l.Transform(ctx, a.Object, transform.TargetTexturedMesh)
			return err
		})
		eg.Go(func() error {
			_, err := l.Load(ctx, "meshes/rock", resolve.KindTexture, asset.CapTexture)
			return err
		})
	}
	require.NoError(t, eg.Wait())
}
