package factory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type named struct {
	path string
	by   string
}

func (n named) Path() string { return n.path }

func ctor(name string) Constructor {
	return func(_ context.Context, path string, _ []byte) (Object, error) {
		return named{path: path, by: name}, nil
	}
}

func TestConstructSelection(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("dds", "dds-low", ctor("dds-low"), 1))
	require.NoError(t, r.Register(".DDS", "dds-high", ctor("dds-high"), 10))
	require.NoError(t, r.Register("dds", "dds-high-late", ctor("dds-high-late"), 10))
	require.NoError(t, r.Register("png", "png-texture", ctor("png-texture"), 0, WithCapability("texture")))
	require.NoError(t, r.Register(Fallback, "blob", ctor("blob"), 0))

	testCases := []struct {
		desc     string
		path     string
		want     Capability
		expected string
		fallback bool
	}{
		{
			desc:     "highest priority",
			path:     "textures/rock.dds",
			expected: "dds-high",
		},
		{
			desc:     "capability falls back to generic",
			path:     "textures/rock.DDS",
			want:     "texture",
			expected: "dds-high",
		},
		{
			desc:     "capability override",
			path:     "textures/rock.png",
			want:     "texture",
			expected: "png-texture",
		},
		{
			desc:     "override unused without capability",
			path:     "textures/rock.png",
			expected: "blob",
			fallback: true,
		},
		{
			desc:     "unknown extension",
			path:     "data/thing.unknownext",
			expected: "blob",
			fallback: true,
		},
		{
			desc:     "no extension",
			path:     "readme",
			expected: "blob",
			fallback: true,
		},
	}
	for _, tt := range testCases {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			opt, obj, err := r.Construct(context.Background(), tt.path, nil, tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, obj.(named).by)
			assert.Equal(t, tt.expected, opt.Name)
			assert.Equal(t, tt.fallback, opt.Fallback)
			assert.Equal(t, tt.path, obj.Path())
		})
	}
}

func TestTieBreakStable(t *testing.T) {
	r := New()
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("obj-%d", i)
		require.NoError(t, r.Register("obj", name, ctor(name), 3))
	}
	for i := 0; i < 20; i++ {
		opt, obj, err := r.Construct(context.Background(), "meshes/rock.obj", nil, "")
		require.NoError(t, err)
		assert.Equal(t, "obj-0", opt.Name)
		assert.Equal(t, "obj-0", obj.(named).by)
	}
}

func TestConstructionFailed(t *testing.T) {
	cause := errors.New("bad header")
	r := New()
	require.NoError(t, r.Register("dds", "broken", func(context.Context, string, []byte) (Object, error) {
		return nil, cause
	}, 0))
	require.NoError(t, r.Register("tga", "silent", func(context.Context, string, []byte) (Object, error) {
		return nil, nil
	}, 0))
	require.NoError(t, r.Register("bmp", "typed-nil", func(context.Context, string, []byte) (Object, error) {
		var n *named
		return n, nil
	}, 0))

	_, obj, err := r.Construct(context.Background(), "textures/rock.dds", []byte("x"), "")
	require.Error(t, err)
	assert.Nil(t, obj)
	assert.True(t, errors.Is(err, ErrConstructionFailed))
	assert.True(t, errors.Is(err, cause))

	var ce *ConstructionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "textures/rock.dds", ce.Path)
	assert.Equal(t, "dds", ce.Ext)
	assert.Equal(t, "broken", ce.Name)

	_, _, err = r.Construct(context.Background(), "textures/rock.tga", nil, "")
	assert.True(t, errors.Is(err, ErrNilObject))
	assert.True(t, errors.Is(err, ErrConstructionFailed))

	_, obj, err = r.Construct(context.Background(), "textures/rock.bmp", nil, "")
	assert.Nil(t, obj)
	assert.True(t, errors.Is(err, ErrNilObject))
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "typed-nil", ce.Name)

	_, _, err = r.Construct(context.Background(), "textures/rock.png", nil, "")
	assert.True(t, errors.Is(err, ErrNoConstructor))
	assert.True(t, errors.Is(err, ErrConstructionFailed))
}

func TestConstructCancelled(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Fallback, "blob", ctor("blob"), 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := r.Construct(ctx, "a.bin", nil, "")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRegistrySealed(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Fallback, "blob", ctor("blob"), 0))
	assert.Error(t, r.Register("", "empty", ctor("empty"), 0))
	assert.Error(t, r.Register("obj", "nil", nil, 0))
	assert.False(t, r.Sealed())

	_, _, err := r.Construct(context.Background(), "a.bin", nil, "")
	require.NoError(t, err)
	assert.True(t, r.Sealed())

	err = r.Register("obj", "late", ctor("late"), 100)
	assert.True(t, errors.Is(err, ErrRegistrySealed))
	opt, ok := r.Lookup("a.obj", "")
	require.True(t, ok)
	assert.Equal(t, "blob", opt.Name)
}

func TestConcurrentConstruct(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("obj", "mesh", ctor("mesh"), 0))
	require.NoError(t, r.Register(Fallback, "blob", ctor("blob"), 0))

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := fmt.Sprintf("meshes/m%d.obj", i)
			_, obj, err := r.Construct(context.Background(), p, nil, "")
			if err == nil && obj.Path() != p {
				err = errors.Errorf("got %s, want %s", obj.Path(), p)
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
