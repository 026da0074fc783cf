package app

import (
	"context"
	"testing"

	"github.com/crazy-max/unpak/pkg/asset"
	"github.com/crazy-max/unpak/pkg/factory"
	"github.com/crazy-max/unpak/pkg/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	mesh, err := asset.NewMesh(context.Background(), "meshes/rock.obj", []byte("o rock\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl granite\nf 1 2 3\n"))
	require.NoError(t, err)
	blob, err := asset.NewBlob(context.Background(), "a.bin", []byte("abc"))
	require.NoError(t, err)

	testCases := []struct {
		desc     string
		obj      factory.Object
		expected map[string]any
	}{
		{
			desc:     "blob",
			obj:      blob,
			expected: map[string]any{"type": "blob", "size": 3},
		},
		{
			desc: "mesh",
			obj:  mesh,
			expected: map[string]any{
				"type":      "mesh",
				"name":      "rock",
				"vertices":  3,
				"triangles": 1,
				"materials": []string{"granite"},
			},
		},
	}
	for _, tt := range testCases {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.expected, describe(tt.obj))
		})
	}

	out, err := transform.Defaults().Transform(context.Background(), nil, blob, transform.TargetUnknownFileModel)
	require.NoError(t, err)
	d := describe(out)
	assert.Equal(t, "unknown-file-model", d["type"])
	assert.Equal(t, int64(3), d["size"])
}
