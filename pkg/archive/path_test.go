package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPath(t *testing.T) {
	testCases := []struct {
		desc     string
		path     string
		expected string
		ok       bool
	}{
		{
			desc:     "already clean",
			path:     "textures/rock.dds",
			expected: "textures/rock.dds",
			ok:       true,
		},
		{
			desc:     "backslashes and case",
			path:     `Textures\Rock.DDS`,
			expected: "textures/rock.dds",
			ok:       true,
		},
		{
			desc:     "leading slash",
			path:     "/meshes/rock.obj",
			expected: "meshes/rock.obj",
			ok:       true,
		},
		{
			desc:     "inner dot segments",
			path:     "meshes/./props/../rock.obj",
			expected: "meshes/rock.obj",
			ok:       true,
		},
		{
			desc: "escapes root",
			path: "../secret.txt",
		},
		{
			desc: "escapes root after clean",
			path: "meshes/../../secret.txt",
		},
		{
			desc: "empty",
			path: "",
		},
		{
			desc: "root only",
			path: "/",
		},
	}
	for _, tt := range testCases {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			p, ok := CleanPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestExt(t *testing.T) {
	assert.Equal(t, "dds", Ext("textures/rock.DDS"))
	assert.Equal(t, "", Ext("textures/rock"))
	assert.Equal(t, "gz", Ext("a/b.tar.gz"))
}
