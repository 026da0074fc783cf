package asset

import (
	"bytes"
	"context"
	"encoding/binary"
	"image/png"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/crazy-max/unpak/pkg/factory"
	"github.com/pkg/errors"
)

// Texture formats
const (
	FormatDDS = "dds"
	FormatPNG = "png"
	FormatTGA = "tga"
)

const (
	ddsHeaderSize = 128
	tgaHeaderSize = 18
)

// Texture is an image with its decoded header. Pixel data is kept encoded.
type Texture struct {
	path     string
	Format   string
	Width    int
	Height   int
	MipCount int
	FourCC   string
	Depth    int
	Data     []byte
}

// NewTexture decodes the header of a dds, png or tga image, picked by
// magic bytes first then by extension.
func NewTexture(_ context.Context, path string, data []byte) (factory.Object, error) {
	tex := &Texture{path: path, Data: data}
	var err error
	switch {
	case bytes.HasPrefix(data, []byte("DDS ")):
		err = tex.decodeDDS()
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		err = tex.decodePNG()
	case archive.Ext(path) == FormatTGA:
		err = tex.decodeTGA()
	default:
		err = errors.New("unknown texture format")
	}
	if err != nil {
		return nil, err
	}
	return tex, nil
}

func (t *Texture) Path() string { return t.path }

func (t *Texture) Bytes() []byte { return t.Data }

func (t *Texture) decodeDDS() error {
	if len(t.Data) < ddsHeaderSize {
		return errors.Errorf("dds header truncated (%d bytes)", len(t.Data))
	}
	h := t.Data[4:]
	if size := binary.LittleEndian.Uint32(h[0:4]); size != 124 {
		return errors.Errorf("dds header size %d", size)
	}
	t.Format = FormatDDS
	t.Height = int(binary.LittleEndian.Uint32(h[8:12]))
	t.Width = int(binary.LittleEndian.Uint32(h[12:16]))
	t.MipCount = max(int(binary.LittleEndian.Uint32(h[24:28])), 1)
	if fourCC := h[80:84]; fourCC[0] != 0 {
		t.FourCC = string(bytes.TrimRight(fourCC, "\x00"))
	}
	return nil
}

func (t *Texture) decodePNG() error {
	cfg, err := png.DecodeConfig(bytes.NewReader(t.Data))
	if err != nil {
		return errors.Wrap(err, "png header")
	}
	t.Format = FormatPNG
	t.Width = cfg.Width
	t.Height = cfg.Height
	t.MipCount = 1
	return nil
}

func (t *Texture) decodeTGA() error {
	if len(t.Data) < tgaHeaderSize {
		return errors.Errorf("tga header truncated (%d bytes)", len(t.Data))
	}
	h := t.Data[:tgaHeaderSize]
	switch h[2] {
	case 1, 2, 3, 9, 10, 11:
	default:
		return errors.Errorf("tga image type %d", h[2])
	}
	switch h[16] {
	case 8, 15, 16, 24, 32:
	default:
		return errors.Errorf("tga pixel depth %d", h[16])
	}
	t.Format = FormatTGA
	t.Width = int(binary.LittleEndian.Uint16(h[12:14]))
	t.Height = int(binary.LittleEndian.Uint16(h[14:16]))
	t.Depth = int(h[16])
	t.MipCount = 1
	if t.Width == 0 || t.Height == 0 {
		return errors.Errorf("tga dimensions %dx%d", t.Width, t.Height)
	}
	return nil
}
