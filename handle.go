package gralloc

// BufferID is the stable identity of a native buffer object. Backends
// assign identities from a monotonic counter, so an identity is never
// reused while any reference to the object is outstanding.
type BufferID uint64

// Handle is the public, opaque reference to one native buffer object.
// Handles are produced by buffer creation and become invalid the moment
// the corresponding destroy succeeds.
//
// A handle received from another process carries the object identity
// and geometry but no local object attachment; Module.RegisterBuffer
// must be called before the handle can be locked locally.
type Handle struct {
	id     BufferID
	width  int
	height int
	format Format
	usage  Usage
	stride int // bytes

	// obj is the locally attached native object. Nil for foreign
	// handles that have not been registered in this process.
	obj Object
}

// NewHandle reconstructs a handle from its serialized identity and
// geometry, as received from another process. The resulting handle is
// not locally valid until Module.RegisterBuffer succeeds on it.
func NewHandle(id BufferID, width, height int, format Format, usage Usage, stride int) *Handle {
	return &Handle{
		id:     id,
		width:  width,
		height: height,
		format: format,
		usage:  usage,
		stride: stride,
	}
}

// ID returns the identity of the native buffer object behind the handle.
func (h *Handle) ID() BufferID { return h.id }

// Width returns the buffer width in pixels.
func (h *Handle) Width() int { return h.width }

// Height returns the buffer height in pixels.
func (h *Handle) Height() int { return h.height }

// Format returns the buffer's pixel format.
func (h *Handle) Format() Format { return h.format }

// Usage returns the usage flags the buffer was allocated with.
func (h *Handle) Usage() Usage { return h.usage }

// Stride returns the byte stride of the buffer's primary plane.
func (h *Handle) Stride() int { return h.stride }
