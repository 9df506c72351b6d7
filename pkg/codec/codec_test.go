package codec_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notebook/pkg/codec"
	"github.com/aretw0/notebook/pkg/core"
)

func TestCodec_RoundTrip(t *testing.T) {
	c := codec.New(nil)

	cases := map[string][]core.Image{
		"empty":  {},
		"nil":    nil,
		"single": {core.Image("one")},
		"ordered": {
			core.Image("first"),
			core.Image{0x00, 0xff, 0x10},
			core.Image("third"),
		},
		"empty payload kept in place": {
			core.Image("a"),
			core.Image{},
			core.Image("c"),
		},
	}

	for name, images := range cases {
		t.Run(name, func(t *testing.T) {
			blob, err := c.EncodeImages(images)
			require.NoError(t, err)
			require.NotEmpty(t, blob, "an empty set still has a representation")

			got := c.DecodeImages(blob)
			require.Len(t, got, len(images))
			for i := range images {
				assert.True(t, bytes.Equal(images[i], got[i]), "image %d differs", i)
			}
		})
	}
}

func TestCodec_MalformedBlob(t *testing.T) {
	c := codec.New(nil)

	tests := []struct {
		name string
		blob []byte
	}{
		{"garbage", []byte("definitely not cbor")},
		{"truncated", func() []byte {
			blob, _ := c.EncodeImages([]core.Image{core.Image("abcdef")})
			return blob[:len(blob)-2]
		}()},
		{"wrong shape", []byte{0x63, 'a', 'b', 'c'}}, // text string "abc"
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Empty(t, c.DecodeImages(tt.blob))
			})

			_, err := c.Decode(tt.blob)
			require.Error(t, err)
			assert.True(t, codec.IsDecodeError(err))
		})
	}
}

func TestCodec_EmptyBlobIsNoImages(t *testing.T) {
	c := codec.New(nil)

	images, err := c.Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, images)

	images, err = c.Decode([]byte{})
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestCodec_RejectsUnknownVersion(t *testing.T) {
	c := codec.New(nil)

	// {1: 2, 2: []}
	blob := []byte{0xa2, 0x01, 0x02, 0x02, 0x80}
	_, err := c.Decode(blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported envelope version")
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizer(t *testing.T) {
	raw := samplePNG(t)

	t.Run("Quality zero is passthrough", func(t *testing.T) {
		out, err := codec.Normalizer{}.Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, out)
	})

	t.Run("Re-encodes as JPEG", func(t *testing.T) {
		out, err := codec.Normalizer{Quality: 50}.Normalize(raw)
		require.NoError(t, err)

		decoded, err := jpeg.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 8, decoded.Bounds().Dx())
		assert.Equal(t, 4, decoded.Bounds().Dy())
	})

	t.Run("Keeps non images", func(t *testing.T) {
		in := []byte("plain bytes")
		out, err := codec.Normalizer{Quality: 80}.Normalize(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}
