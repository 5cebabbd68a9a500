package services

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// Fixed-box preview size used for gallery grids.
const (
	thumbnailWidth  = 200
	thumbnailHeight = 200
)

// GenerateThumbnail scales source bytes to exactly width x height. Aspect
// ratio is not preserved. The output container is chosen from destName's
// extension (png, gif, anything else JPEG); alpha survives only when the
// source format carries it and the output format can represent it. Any
// decode or encode failure comes back as an UnsupportedImageError.
func GenerateThumbnail(source []byte, width, height int, destName string) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		return nil, &UnsupportedImageError{Err: err}
	}

	outFormat := "jpeg"
	switch strings.ToLower(filepath.Ext(destName)) {
	case ".png":
		outFormat = "png"
	case ".gif":
		outFormat = "gif"
	}

	rect := image.Rect(0, 0, width, height)
	keepAlpha := (format == "png" || format == "gif") &&
		(outFormat == "png" || outFormat == "gif") && !isOpaque(img)

	var dst draw.Image
	if keepAlpha {
		dst = image.NewNRGBA(rect)
	} else {
		dst = image.NewRGBA(rect)
	}
	draw.CatmullRom.Scale(dst, rect, img, img.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	switch outFormat {
	case "png":
		err = png.Encode(&buf, dst)
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, &UnsupportedImageError{Err: err}
	}
	return buf.Bytes(), nil
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return true
}
