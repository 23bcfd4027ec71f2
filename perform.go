package gralloc

import "fmt"

// Op is the numeric code of a Perform command. Codes are stable across
// releases so that out-of-tree callers can dispatch on them.
type Op uint32

const (
	// OpGetBackendDescriptor retrieves the backend's device descriptor.
	OpGetBackendDescriptor Op = 0x40000000 + iota

	// OpImportBuffer resolves a foreign file descriptor and handle
	// into an ExternalBuffer.
	OpImportBuffer

	// OpCreateBuffer allocates a buffer out of band.
	OpCreateBuffer

	// OpDestroyBuffer destroys a buffer out of band.
	OpDestroyBuffer
)

// String returns the string representation of the op code.
func (o Op) String() string {
	switch o {
	case OpGetBackendDescriptor:
		return "GetBackendDescriptor"
	case OpImportBuffer:
		return "ImportBuffer"
	case OpCreateBuffer:
		return "CreateBuffer"
	case OpDestroyBuffer:
		return "DestroyBuffer"
	default:
		return fmt.Sprintf("Op(%#x)", uint32(o))
	}
}

// Command is one Perform invocation: an op code plus its typed,
// fixed-arity arguments. New capabilities are added as new command
// types without changing any fixed entry-point signature.
//
// Commands are passed by pointer; output fields are filled in on
// success.
type Command interface {
	// Op returns the command's numeric code.
	Op() Op
}

// GetBackendDescriptor retrieves the backend's device descriptor
// (e.g. a DRM file descriptor). FD is filled in on success.
type GetBackendDescriptor struct {
	FD int
}

// Op returns OpGetBackendDescriptor.
func (*GetBackendDescriptor) Op() Op { return OpGetBackendDescriptor }

// ImportBuffer resolves a buffer exported by another process. FD is the
// foreign descriptor, Handle identifies the buffer at the backend
// level, and Buffer is filled in on success. Requires a backend with
// the Importer capability.
type ImportBuffer struct {
	FD     int
	Handle *Handle
	Buffer ExternalBuffer
}

// Op returns OpImportBuffer.
func (*ImportBuffer) Op() Op { return OpImportBuffer }

// CreateBuffer allocates a buffer out of band. Handle is filled in on
// success; the stride result of the allocation is discarded.
type CreateBuffer struct {
	Width, Height int
	Format        Format
	Usage         Usage
	Handle        *Handle
}

// Op returns OpCreateBuffer.
func (*CreateBuffer) Op() Op { return OpCreateBuffer }

// DestroyBuffer destroys a buffer out of band.
type DestroyBuffer struct {
	Handle *Handle
}

// Op returns OpDestroyBuffer.
func (*DestroyBuffer) Op() Op { return OpDestroyBuffer }

// Perform executes an extension command. The backend is constructed
// first if needed; on construction failure that error is returned
// without dispatching. Unrecognized commands (including nil) fail with
// ErrInvalidArgument and have no side effect beyond ensuring the
// backend exists.
func (m *Module) Perform(cmd Command) error {
	if err := m.ensureBackend(); err != nil {
		return err
	}
	b := m.currentBackend()

	switch c := cmd.(type) {
	case *GetBackendDescriptor:
		c.FD = b.Descriptor()
		return nil

	case *ImportBuffer:
		if c.Handle == nil || c.Handle.id == 0 {
			return fmt.Errorf("%w: import requires a valid handle", ErrInvalidArgument)
		}
		imp, ok := b.(Importer)
		if !ok {
			return fmt.Errorf("%w: backend %q cannot resolve external buffers", ErrInvalidArgument, b.Name())
		}
		return imp.ResolveExternal(c.FD, c.Handle, &c.Buffer)

	case *CreateBuffer:
		h, _, err := m.createBuffer(c.Width, c.Height, c.Format, c.Usage)
		if err != nil {
			return err
		}
		c.Handle = h
		return nil

	case *DestroyBuffer:
		return m.destroyBuffer(c.Handle)

	default:
		return fmt.Errorf("%w: unrecognized perform command", ErrInvalidArgument)
	}
}
