package codec

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"go.uber.org/zap"
)

// Normalizer re-encodes attached images as JPEG at a fixed quality.
// Quality 0 keeps images byte-for-byte. Bytes that are not a decodable
// image are kept as they are.
type Normalizer struct {
	Quality int
	Logger  *zap.Logger
}

// Normalize implements core.Normalizer.
func (n Normalizer) Normalize(img []byte) ([]byte, error) {
	if n.Quality <= 0 {
		return img, nil
	}
	quality := n.Quality
	if quality > 100 {
		quality = 100
	}

	decoded, format, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		if n.Logger != nil {
			n.Logger.Debug("keeping undecodable image as is", zap.Int("bytes", len(img)), zap.Error(err))
		}
		return img, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to re-encode %s image: %w", format, err)
	}
	return buf.Bytes(), nil
}
