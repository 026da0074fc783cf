package asset

import (
	"context"

	"github.com/crazy-max/unpak/pkg/factory"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Row is one game-content record.
type Row map[string]any

// Records is a list of game-content records. Records are plain data.
type Records struct {
	path string
	Rows []Row
}

var (
	recordsDecMode cbor.DecMode
	recordsEncMode cbor.EncMode
)

func init() {
	var err error
	if recordsDecMode, err = (cbor.DecOptions{MaxNestedLevels: 32}).DecMode(); err != nil {
		panic("asset: cbor decode mode: " + err.Error())
	}
	if recordsEncMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic("asset: cbor encode mode: " + err.Error())
	}
}

// NewRecords decodes a CBOR array of maps.
func NewRecords(_ context.Context, path string, data []byte) (factory.Object, error) {
	r := &Records{path: path}
	if err := recordsDecMode.Unmarshal(data, &r.Rows); err != nil {
		return nil, errors.Wrap(err, "decoding records")
	}
	return r, nil
}

// EncodeRecords encodes rows in canonical CBOR.
func EncodeRecords(rows []Row) ([]byte, error) {
	return recordsEncMode.Marshal(rows)
}

func (r *Records) Path() string { return r.path }

// Bytes encodes the records in canonical CBOR.
func (r *Records) Bytes() []byte {
	b, _ := EncodeRecords(r.Rows)
	return b
}
