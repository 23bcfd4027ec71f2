package gralloc

import "fmt"

// YCbCr describes the addressable planes of a locked planar buffer.
//
// Plane positions are expressed as byte offsets relative to Base rather
// than raw pointers. CbOffset and CrOffset are computed from the
// backend's absolute plane offsets by difference, so they are correct
// whichever chroma plane the backend placed first; CbOffset may be
// negative relative to CrOffset for YV12-style layouts.
//
// When the buffer was resolved with usage 0 no CPU mapping is taken:
// Base is nil and the offsets are still computed. Callers must not
// index into a nil Base; the offsets are only meaningful once a real
// mapping exists.
type YCbCr struct {
	// Base is the CPU mapping of the whole buffer, or nil if the
	// resolve was performed with usage 0.
	Base []byte

	// YOffset, CbOffset and CrOffset locate the luma, chroma-blue and
	// chroma-red planes relative to Base.
	YOffset  int
	CbOffset int
	CrOffset int

	// YStride and CStride are the byte strides of the luma and chroma
	// rows.
	YStride int
	CStride int

	// ChromaStep is the byte distance between consecutive chroma
	// samples within a row. Both supported formats are fully planar,
	// so the step is always 1.
	ChromaStep int
}

// LockYCbCr resolves a planar buffer into per-plane strides and
// offsets, taking a CPU mapping of the whole buffer when usage is
// non-zero. Only FormatYV12 and FormatYCbCr420 are supported; any
// other format fails with ErrInvalidArgument before the backend is
// touched.
//
// A non-zero usage takes a lock that must be paired with Unlock, like
// a plain Lock call.
func (m *Module) LockYCbCr(h *Handle, usage Usage, x, y, w, hgt int) (YCbCr, error) {
	obj, err := m.resolve(h)
	if err != nil {
		return YCbCr{}, err
	}

	if !h.format.IsPlanarYCbCr() {
		return YCbCr{}, fmt.Errorf("%w: format %v has no plane resolution", ErrInvalidArgument, h.format)
	}

	var base []byte
	if usage != 0 {
		base, err = obj.Lock(usage, x, y, w, hgt)
		if err != nil {
			return YCbCr{}, err
		}
	}

	pitches, offsets := obj.PlaneLayout()

	return YCbCr{
		Base:       base,
		YOffset:    0,
		CbOffset:   offsets[1] - offsets[2],
		CrOffset:   offsets[2] - offsets[0],
		YStride:    pitches[0],
		CStride:    pitches[1],
		ChromaStep: 1,
	}, nil
}
