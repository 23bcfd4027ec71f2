package gralloc

// Usage is a bitmask describing how a buffer will be accessed. The bit
// values match the platform HAL gralloc usage flags.
type Usage uint32

const (
	// UsageSwReadRarely indicates occasional CPU reads.
	UsageSwReadRarely Usage = 0x2

	// UsageSwReadOften indicates frequent CPU reads.
	UsageSwReadOften Usage = 0x3

	// UsageSwWriteRarely indicates occasional CPU writes.
	UsageSwWriteRarely Usage = 0x20

	// UsageSwWriteOften indicates frequent CPU writes.
	UsageSwWriteOften Usage = 0x30

	// UsageHwTexture indicates the buffer is sampled by the GPU.
	UsageHwTexture Usage = 0x100

	// UsageHwRender indicates the buffer is a GPU render target.
	UsageHwRender Usage = 0x200

	// UsageHwFB indicates the buffer is scanned out by the display.
	UsageHwFB Usage = 0x1000
)

// SwAccess reports whether any CPU read or write bit is set.
func (u Usage) SwAccess() bool {
	return u&(UsageSwReadOften|UsageSwWriteOften) != 0
}
