// Package textureio decodes image files into pixel buffers in one of the
// formats the engine accepts for raw textures.
package textureio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/gekko3d/hdmoonshine/moonshine"
	"github.com/x448/float16"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// AlphaOpaque8 is the alpha byte written for 8-bit channels when an RGB image
// is widened to RGBA.
const AlphaOpaque8 byte = 0xFF

// AlphaOpaqueHalf is half float 1.0, little endian.
var AlphaOpaqueHalf = []byte{0x00, 0x3C}

// Image is decoded pixel data, tightly packed, first row first.
type Image struct {
	Width  int
	Height int
	Format moonshine.TextureFormat
	Data   []byte
}

func (img Image) Extent() moonshine.Extent2D {
	return moonshine.Extent2D{Width: uint32(img.Width), Height: uint32(img.Height)}
}

// Options controls how an image is stored.
type Options struct {
	// FlipVertical stores the last row first. The engine expects flipped UVs,
	// which is the same as flipping the image here.
	FlipVertical bool
}

// Load reads and decodes the image file at path.
func Load(path string, opts Options) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("open texture: %w", err)
	}
	defer f.Close()

	img, err := Decode(f, opts)
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Decode decodes an image and converts it to an engine format. 8-bit images
// become u8x4_srgb and 16-bit images f16x4. Images without alpha are packed
// as three channels and widened to four in place.
func Decode(r io.Reader, opts Options) (Image, error) {
	src, _, err := image.Decode(r)
	if errors.Is(err, image.ErrFormat) {
		return Image{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if err != nil {
		return Image{}, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	out := Image{Width: b.Dx(), Height: b.Dy()}
	switch src.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16, *image.Alpha16:
		out.Format = moonshine.TextureFormatF16x4
		out.Data = decodeHalf(src, opts.FlipVertical)
	case *image.YCbCr, *image.Gray, *image.CMYK:
		out.Format = moonshine.TextureFormatU8x4Srgb
		out.Data = decodeOpaque8(src, opts.FlipVertical)
	default:
		out.Format = moonshine.TextureFormatU8x4Srgb
		out.Data = decode8(src, opts.FlipVertical)
	}
	return out, nil
}

func decode8(src image.Image, flip bool) []byte {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	nrgba, ok := src.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(nrgba, nrgba.Bounds(), src, b.Min, draw.Src)
	}
	data := make([]byte, w*h*4)
	rowBytes := w * 4
	for y := 0; y < h; y++ {
		row := rowIndex(y, h, flip)
		copy(data[row*rowBytes:(row+1)*rowBytes], nrgba.Pix[y*nrgba.Stride:y*nrgba.Stride+rowBytes])
	}
	return data
}

// decodeOpaque8 packs RGB at the front of a buffer sized for RGBA, then
// widens it.
func decodeOpaque8(src image.Image, flip bool) []byte {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)

	data := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		i := rowIndex(y, h, flip) * w * 3
		pix := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		for x := 0; x < w; x++ {
			copy(data[i:i+3], pix[4*x:4*x+3])
			i += 3
		}
	}
	RepackRGBToRGBA(data, w*h, 3, 4, []byte{AlphaOpaque8})
	return data
}

// decodeHalf converts 16-bit channels to little endian half floats in [0, 1].
func decodeHalf(src image.Image, flip bool) []byte {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	nrgba := image.NewNRGBA64(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), src, b.Min, draw.Src)

	channels := 4
	if opaque(src) {
		channels = 3
	}
	data := make([]byte, w*h*8)
	for y := 0; y < h; y++ {
		i := rowIndex(y, h, flip) * w * channels * 2
		pix := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*8]
		for x := 0; x < w; x++ {
			for c := 0; c < channels; c++ {
				v := binary.BigEndian.Uint16(pix[8*x+2*c:])
				binary.LittleEndian.PutUint16(data[i:], float16.Fromfloat32(float32(v)/0xFFFF).Bits())
				i += 2
			}
		}
	}
	if channels == 3 {
		RepackRGBToRGBA(data, w*h, 6, 8, AlphaOpaqueHalf)
	}
	return data
}

func opaque(img image.Image) bool {
	if _, ok := img.(*image.Gray16); ok {
		return true
	}
	o, ok := img.(interface{ Opaque() bool })
	return ok && o.Opaque()
}

func rowIndex(y, height int, flip bool) int {
	if flip {
		return height - 1 - y
	}
	return y
}

// RepackRGBToRGBA widens pixelCount pixels of srcBpp bytes to dstBpp bytes in
// place, filling the added bytes of every pixel with alpha. data must hold
// pixelCount*dstBpp bytes with the packed source at the front. Pixels are
// moved last to first so no source byte is overwritten before it is read;
// pixel 0 is handled last.
func RepackRGBToRGBA(data []byte, pixelCount, srcBpp, dstBpp int, alpha []byte) {
	pad := dstBpp - srcBpp
	for k := pixelCount - 1; k >= 0; k-- {
		copy(data[dstBpp*k:dstBpp*k+srcBpp], data[srcBpp*k:srcBpp*k+srcBpp])
		fill := data[dstBpp*k+srcBpp : dstBpp*k+dstBpp]
		for i := 0; i < pad; i++ {
			fill[i] = alpha[i%len(alpha)]
		}
	}
}
