package sonos

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif" // register decoders for the formats album art arrives in
)

// GetAlbumArt fetches and decodes the album art at the given absolute URI,
// typically a track's AlbumArtURI.
func (c *Client) GetAlbumArt(uri string) (image.Image, error) {
	body, err := c.getRaw(uri)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to decode album art: %w", err)
	}
	return img, nil
}

// GetAlbumArtBase64 fetches the album art and re-encodes it as a base64
// string suitable for embedding. JPEG is attempted first, then PNG.
func (c *Client) GetAlbumArtBase64(uri string) (string, error) {
	img, err := c.GetAlbumArt(uri)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		buf.Reset()
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("unable to encode album art: %w", err)
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
