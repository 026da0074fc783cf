// Package asset holds the objects built from archive entries and their
// default constructors.
package asset

import (
	"context"

	"github.com/crazy-max/unpak/pkg/factory"
)

// CapTexture asks for a texture-capable representation.
const CapTexture factory.Capability = "texture"

// constructor priorities
const (
	priorityFallback = 0
	priorityDefault  = 10
)

// Blob is an opaque entry payload.
type Blob struct {
	path string
	Data []byte
}

// NewBlob is the fallback constructor.
func NewBlob(_ context.Context, path string, data []byte) (factory.Object, error) {
	return &Blob{path: path, Data: data}, nil
}

func (b *Blob) Path() string { return b.path }

func (b *Blob) Bytes() []byte { return b.Data }

// RegisterDefaults registers the constructors of this package.
func RegisterDefaults(r *factory.Registry) error {
	regs := []struct {
		disc string
		name string
		fn   factory.Constructor
		prio int
		opts []factory.RegisterOption
	}{
		{disc: factory.Fallback, name: "blob", fn: NewBlob, prio: priorityFallback},
		{disc: "dds", name: "texture", fn: NewTexture, prio: priorityDefault},
		{disc: "tga", name: "texture", fn: NewTexture, prio: priorityDefault},
		{disc: "png", name: "texture", fn: NewTexture, prio: priorityDefault, opts: []factory.RegisterOption{factory.WithCapability(CapTexture)}},
		{disc: "obj", name: "mesh", fn: NewMesh, prio: priorityDefault},
		{disc: "scene", name: "scene", fn: NewScene, prio: priorityDefault},
		{disc: "yaml", name: "scene", fn: NewScene, prio: priorityDefault},
		{disc: "yml", name: "scene", fn: NewScene, prio: priorityDefault},
		{disc: "rec", name: "records", fn: NewRecords, prio: priorityDefault},
	}
	for _, reg := range regs {
		if err := r.Register(reg.disc, reg.name, reg.fn, reg.prio, reg.opts...); err != nil {
			return err
		}
	}
	return nil
}
