package resolve

import (
	"testing"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type set map[string]bool

func (s set) Contains(p string) bool {
	p, ok := archive.CleanPath(p)
	return ok && s[p]
}

func TestResolve(t *testing.T) {
	c := set{
		"textures/rock.dds":  true,
		"meshes/tree.tga":    true,
		"textures/tree.png":  true,
		"meshes/rock.obj":    true,
		"scenes/cave.scene":  true,
		"data/items.rec":     true,
		"sounds/wind.ogg":    true,
		"sounds/wind.wav":    true,
		"meshes/rock":        true,
		"levels/a/door.yaml": true,
	}
	r := New(c)

	testCases := []struct {
		desc     string
		base     string
		kind     Kind
		expected string
		found    bool
	}{
		{
			desc:     "texture from mesh directory",
			base:     "meshes/rock",
			kind:     KindTexture,
			expected: "textures/rock.dds",
			found:    true,
		},
		{
			desc:     "texture from mesh path with extension",
			base:     "meshes/rock.obj",
			kind:     KindTexture,
			expected: "textures/rock.dds",
			found:    true,
		},
		{
			desc:     "extension precedence before location",
			base:     "meshes/tree",
			kind:     KindTexture,
			expected: "meshes/tree.tga",
			found:    true,
		},
		{
			desc:  "missing texture",
			base:  "meshes/missing",
			kind:  KindTexture,
			found: false,
		},
		{
			desc:     "mesh in own directory",
			base:     "meshes/rock",
			kind:     KindMesh,
			expected: "meshes/rock.obj",
			found:    true,
		},
		{
			desc:     "mesh from bare name",
			base:     "rock",
			kind:     KindMesh,
			expected: "meshes/rock.obj",
			found:    true,
		},
		{
			desc:     "scene in scenes",
			base:     "Cave",
			kind:     KindScene,
			expected: "scenes/cave.scene",
			found:    true,
		},
		{
			desc:     "scene in own directory",
			base:     `levels\a\door`,
			kind:     KindScene,
			expected: "levels/a/door.yaml",
			found:    true,
		},
		{
			desc:     "record",
			base:     "items",
			kind:     KindRecord,
			expected: "data/items.rec",
			found:    true,
		},
		{
			desc:     "sound prefers wav",
			base:     "wind",
			kind:     KindSound,
			expected: "sounds/wind.wav",
			found:    true,
		},
		{
			desc:     "exact path for any",
			base:     "meshes/rock",
			kind:     KindAny,
			expected: "meshes/rock",
			found:    true,
		},
		{
			desc:     "exact path with kind extension",
			base:     "sounds/wind.ogg",
			kind:     KindSound,
			expected: "sounds/wind.ogg",
			found:    true,
		},
		{
			desc:  "escaping path",
			base:  "../textures/rock.dds",
			kind:  KindTexture,
			found: false,
		},
	}
	for _, tt := range testCases {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			res, ok := r.Resolve(tt.base, tt.kind)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.found, res.Found)
			assert.Equal(t, tt.expected, res.Path)
			if tt.found {
				assert.NoError(t, res.Err())
			} else {
				err := res.Err()
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrPathNotFound))
			}
		})
	}
}

func TestCandidates(t *testing.T) {
	r := New(set{})
	assert.Equal(t, []string{
		"textures/rock.dds",
		"meshes/rock.dds",
		"textures/rock.tga",
		"meshes/rock.tga",
		"textures/rock.png",
		"meshes/rock.png",
	}, r.Candidates("meshes/rock", KindTexture))

	// root directory collapses with the textures location
	assert.Equal(t, []string{
		"textures/rock.dds",
		"rock.dds",
		"textures/rock.tga",
		"rock.tga",
		"textures/rock.png",
		"rock.png",
	}, r.Candidates("rock", KindTexture))

	assert.Equal(t, []string{
		"textures/rock.dds",
		"textures/rock.tga",
		"textures/rock.png",
	}, r.Candidates("textures/rock.dds", KindTexture))

	assert.Nil(t, r.Candidates("", KindTexture))
}

func TestResolveDeterministic(t *testing.T) {
	r := New(set{"textures/a.png": true, "a.tga": true})
	first, ok1 := r.Resolve("a", KindTexture)
	for i := 0; i < 10; i++ {
		again, ok2 := r.Resolve("a", KindTexture)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "a.tga", first.Path)
}

func TestWithRule(t *testing.T) {
	r := New(set{"art/rock.png": true}, WithRule(KindTexture, Rule{
		Extensions: []string{".PNG"},
		Locations:  []string{"/Art/"},
	}))
	res, ok := r.Resolve("meshes/rock", KindTexture)
	require.True(t, ok)
	assert.Equal(t, "art/rock.png", res.Path)
	assert.Equal(t, []string{"art/rock.png"}, res.Tried)

	rule, ok := r.Rule(KindMesh)
	require.True(t, ok)
	assert.Equal(t, []string{"obj"}, rule.Extensions)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Texture")
	require.NoError(t, err)
	assert.Equal(t, KindTexture, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindAny, k)

	_, err = ParseKind("shader")
	assert.Error(t, err)
}
