package gralloc

import "fmt"

// Format identifies the pixel format of a buffer.
//
// The numeric values match the platform HAL so that handles exchanged
// with other processes agree on formats without translation.
type Format uint32

const (
	// FormatRGBA8888 is 32-bit RGBA, 8 bits per channel.
	FormatRGBA8888 Format = 1

	// FormatRGBX8888 is 32-bit RGB with an ignored alpha byte.
	FormatRGBX8888 Format = 2

	// FormatRGB888 is 24-bit packed RGB.
	FormatRGB888 Format = 3

	// FormatRGB565 is 16-bit RGB.
	FormatRGB565 Format = 4

	// FormatBGRA8888 is 32-bit BGRA, 8 bits per channel.
	FormatBGRA8888 Format = 5

	// FormatYCbCr420 is the flexible 4:2:0 planar YCbCr format.
	FormatYCbCr420 Format = 0x23

	// FormatImplementationDefined lets the allocator pick a concrete
	// format. It is rewritten to FormatRGBA8888 before sizing.
	FormatImplementationDefined Format = 0x22

	// FormatYV12 is 4:2:0 planar YCbCr with the Cr plane before Cb.
	FormatYV12 Format = 0x32315659
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatRGBA8888:
		return "RGBA8888"
	case FormatRGBX8888:
		return "RGBX8888"
	case FormatRGB888:
		return "RGB888"
	case FormatRGB565:
		return "RGB565"
	case FormatBGRA8888:
		return "BGRA8888"
	case FormatYCbCr420:
		return "YCbCr420"
	case FormatImplementationDefined:
		return "ImplementationDefined"
	case FormatYV12:
		return "YV12"
	default:
		return fmt.Sprintf("Format(%#x)", uint32(f))
	}
}

// BytesPerPixel returns the byte size of one pixel in the format's
// primary plane, or 0 if the format has no known mapping.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA8888, FormatRGBX8888, FormatBGRA8888:
		return 4
	case FormatRGB888:
		return 3
	case FormatRGB565:
		return 2
	case FormatYV12, FormatYCbCr420:
		return 1
	default:
		return 0
	}
}

// IsPlanarYCbCr reports whether the format is one of the two planar
// YCbCr layouts supported by Module.LockYCbCr.
func (f Format) IsPlanarYCbCr() bool {
	return f == FormatYV12 || f == FormatYCbCr420
}

// Normalize rewrites FormatImplementationDefined to the concrete
// FormatRGBA8888; all other formats pass through unchanged.
func (f Format) Normalize() Format {
	if f == FormatImplementationDefined {
		return FormatRGBA8888
	}
	return f
}

// strideAlign is the pixel alignment applied to row strides. Planar
// chroma strides are additionally aligned to this value in bytes.
const strideAlign = 16

// Layout describes how one allocation is laid out in memory: the byte
// stride of the primary plane, the total allocation size, and up to
// four (pitch, offset) pairs for multi-plane formats.
//
// For YV12 the Cr plane precedes Cb in memory; for YCbCr420 Cb precedes
// Cr. In both cases Offsets[1] is the absolute Cb offset and Offsets[2]
// the absolute Cr offset, mirroring the framebuffer plane order.
type Layout struct {
	StrideBytes int
	Size        int
	Pitches     [4]int
	Offsets     [4]int
}

// LayoutFor computes the memory layout of a width x height buffer in
// the given format. The format must already be normalized. Returns
// ErrInvalidArgument (wrapped) for formats with no known layout or for
// non-positive dimensions.
func LayoutFor(width, height int, format Format) (Layout, error) {
	if width <= 0 || height <= 0 {
		return Layout{}, fmt.Errorf("%w: invalid dimensions %dx%d", ErrInvalidArgument, width, height)
	}

	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return Layout{}, fmt.Errorf("%w: no bytes-per-pixel mapping for format %v", ErrInvalidArgument, format)
	}

	if !format.IsPlanarYCbCr() {
		stride := align(width, strideAlign) * bpp
		return Layout{
			StrideBytes: stride,
			Size:        stride * height,
			Pitches:     [4]int{stride, 0, 0, 0},
			Offsets:     [4]int{0, 0, 0, 0},
		}, nil
	}

	yStride := align(width, strideAlign)
	cStride := align(yStride/2, strideAlign)
	ySize := yStride * height
	cSize := cStride * ((height + 1) / 2)

	l := Layout{
		StrideBytes: yStride,
		Size:        ySize + 2*cSize,
		Pitches:     [4]int{yStride, cStride, cStride, 0},
	}
	if format == FormatYV12 {
		// Memory order Y, Cr, Cb.
		l.Offsets = [4]int{0, ySize + cSize, ySize, 0}
	} else {
		// Memory order Y, Cb, Cr.
		l.Offsets = [4]int{0, ySize, ySize + cSize, 0}
	}
	return l, nil
}

// align rounds n up to the next multiple of a. a must be a power of two.
func align(n, a int) int {
	return (n + a - 1) &^ (a - 1)
}
