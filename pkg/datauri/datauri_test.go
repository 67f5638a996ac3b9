package datauri

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestExtractPhoto(t *testing.T) {
	raw := encodePNG(t, 4, 4)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	file, err := ExtractPhoto(uri)
	require.NoError(t, err)

	require.Equal(t, "image/png", file.ContentType)
	require.Equal(t, "png", file.Name)
	require.Equal(t, PhotoFieldName, file.FieldName)
	require.Empty(t, file.Charset)
	require.Equal(t, int64(len(raw)), file.Size)
	require.Equal(t, raw, file.Bytes())

	read, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, raw, read)

	require.Equal(t, "image/png", file.Detect())
	require.True(t, file.Matches("image/png", "image/jpeg"))
	require.True(t, file.Matches("image/jpeg", "image/png"))
	require.False(t, file.Matches("image/jpeg", "image/gif"))
	require.False(t, file.Matches())
}

func TestExtractPhotoUnpadded(t *testing.T) {
	uri := "data:text/plain;base64," + base64.RawStdEncoding.EncodeToString([]byte("ab"))

	file, err := ExtractPhoto(uri)
	require.NoError(t, err)
	require.Equal(t, []byte("ab"), file.Bytes())
	require.Equal(t, "plain", file.Name)
}

func TestExtractPhotoMalformed(t *testing.T) {
	for _, input := range []string{
		"",
		"image/png;base64,AAAA",
		"data:image/png,AAAA",
		"data:image;base64,AAAA",
	} {
		_, err := ExtractPhoto(input)
		require.ErrorIs(t, err, ErrMalformedDataURI, input)
	}

	_, err := ExtractPhoto("data:image/png;base64,!!!")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMalformedDataURI)
}

func TestThumbnailScalesLargeImages(t *testing.T) {
	file := NewUploadedFile(PhotoFieldName, "png", "image/png", encodePNG(t, 64, 32))

	thumb, err := Thumbnail(file, 16)
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", thumb.ContentType)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb.Bytes()))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	require.Equal(t, 16, cfg.Width)
	require.Equal(t, 8, cfg.Height)
}

func TestThumbnailKeepsAspectRatioOfTallImages(t *testing.T) {
	thumb, err := Thumbnail(NewUploadedFile(PhotoFieldName, "png", "image/png", encodePNG(t, 10, 400)), 64)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Width)
	require.Equal(t, 64, cfg.Height)
}

func TestThumbnailFlattensTransparencyOntoWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 400, 100))
	for x := 200; x < 400; x++ {
		for y := 0; y < 100; y++ {
			img.Set(x, y, color.NRGBA{R: 10, G: 20, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	thumb, err := Thumbnail(NewUploadedFile(PhotoFieldName, "png", "image/png", buf.Bytes()), 64)
	require.NoError(t, err)

	out, _, err := image.Decode(bytes.NewReader(thumb.Bytes()))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 64, 16), out.Bounds())

	r, g, b, _ := out.At(5, 8).RGBA()
	require.Greater(t, r>>8, uint32(240))
	require.Greater(t, g>>8, uint32(240))
	require.Greater(t, b>>8, uint32(240))
}

func TestThumbnailKeepsSmallImages(t *testing.T) {
	file := NewUploadedFile(PhotoFieldName, "png", "image/png", encodePNG(t, 8, 6))

	thumb, err := Thumbnail(file, 16)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Width)
	require.Equal(t, 6, cfg.Height)
}

func TestThumbnailRejectsNonImages(t *testing.T) {
	_, err := Thumbnail(NewUploadedFile(PhotoFieldName, "plain", "text/plain", []byte("hello")), 16)
	require.Error(t, err)
}
