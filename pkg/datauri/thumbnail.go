package datauri

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register gif
	"image/jpeg"
	_ "image/png" // register png

	"golang.org/x/image/draw"
)

const thumbnailQuality = 85

// Thumbnail decodes an image file and fits it inside a size x size box as a JPEG,
// keeping its proportions. Images already within bounds keep their dimensions.
// Transparent areas are flattened onto white.
func Thumbnail(file *UploadedFile, size int) (*UploadedFile, error) {
	if file == nil {
		return nil, fmt.Errorf("datauri: thumbnail: file is required")
	}
	if size <= 0 {
		return nil, fmt.Errorf("datauri: thumbnail: size must be positive")
	}

	src, _, err := image.Decode(bytes.NewReader(file.data))
	if err != nil {
		return nil, fmt.Errorf("datauri: decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), size)

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), src, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("datauri: encode thumbnail: %w", err)
	}

	return NewUploadedFile(file.FieldName, "jpeg", "image/jpeg", buf.Bytes()), nil
}

// fitWithin scales the longer edge down to size. Neither edge drops below one pixel.
func fitWithin(width, height, size int) (int, int) {
	if width <= size && height <= size {
		return width, height
	}
	if width >= height {
		return size, max(1, height*size/width)
	}
	return max(1, width*size/height), size
}
