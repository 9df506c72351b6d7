// Package codec turns a note's images into a single opaque blob and back.
//
// The blob is a CBOR envelope {1: version, 2: [bstr, ...]}. Image bytes are
// stored verbatim, so repeated load/save cycles never degrade them; any lossy
// re-encoding happens once, at attach time, through Normalizer.
package codec

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"github.com/aretw0/notebook/pkg/core"
)

// Version is the envelope version written by EncodeImages.
const Version = 1

type envelope struct {
	Version uint     `cbor:"1,keyasint"`
	Images  [][]byte `cbor:"2,keyasint"`
}

// Codec encodes and decodes image blobs.
type Codec struct {
	logger *zap.Logger
	enc    cbor.EncMode
	dec    cbor.DecMode
}

// New creates a Codec. A nil logger disables logging.
func New(logger *zap.Logger) *Codec {
	if logger == nil {
		logger = zap.NewNop()
	}
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: invalid cbor encode options: %v", err))
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: invalid cbor decode options: %v", err))
	}
	return &Codec{logger: logger, enc: enc, dec: dec}
}

// EncodeImages serializes images preserving count and order.
// Zero images produce a valid, non-empty blob.
func (c *Codec) EncodeImages(images []core.Image) ([]byte, error) {
	env := envelope{
		Version: Version,
		Images:  make([][]byte, len(images)),
	}
	for i, img := range images {
		if img == nil {
			img = core.Image{}
		}
		env.Images[i] = img
	}

	blob, err := c.enc.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %d images: %w", len(images), err)
	}
	return blob, nil
}

// DecodeImages never fails: an empty blob is no images, a malformed one is
// logged and treated as no images.
func (c *Codec) DecodeImages(blob []byte) []core.Image {
	images, err := c.Decode(blob)
	if err != nil {
		c.logger.Warn("discarding image blob", zap.Int("bytes", len(blob)), zap.Error(err))
		return nil
	}
	return images
}

// Decode is the strict variant of DecodeImages. Failures are *core.DecodeError.
func (c *Codec) Decode(blob []byte) ([]core.Image, error) {
	if len(blob) == 0 {
		return nil, nil
	}

	var env envelope
	if err := c.dec.Unmarshal(blob, &env); err != nil {
		return nil, &core.DecodeError{Err: err}
	}
	if env.Version != Version {
		return nil, &core.DecodeError{Err: fmt.Errorf("unsupported envelope version %d", env.Version)}
	}
	if len(env.Images) == 0 {
		return nil, nil
	}

	images := make([]core.Image, len(env.Images))
	for i, img := range env.Images {
		if img == nil {
			img = []byte{}
		}
		images[i] = img
	}
	return images, nil
}

// IsDecodeError reports whether err came from a malformed blob.
func IsDecodeError(err error) bool {
	var de *core.DecodeError
	return errors.As(err, &de)
}
