// Command grallocdump allocates a few buffers on the default backend,
// exercises the lock/unlock protocol and prints the allocator's
// diagnostic dump.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gralloc"
	_ "github.com/gogpu/gralloc/backend/gpu"
	_ "github.com/gogpu/gralloc/backend/mem"
	_ "github.com/gogpu/gralloc/backend/shm"
)

func main() {
	var (
		width   = flag.Int("width", 640, "buffer width")
		height  = flag.Int("height", 480, "buffer height")
		count   = flag.Int("count", 3, "number of buffers to allocate")
		backend = flag.String("backend", "", "backend name (default: best available)")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		gralloc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	var opts []gralloc.Option
	if *backend != "" {
		opts = append(opts, gralloc.WithBackendName(*backend))
	}
	m := gralloc.New(opts...)

	dev, err := m.Open(gralloc.DeviceGPU0)
	if err != nil {
		log.Fatalf("open allocation device: %v", err)
	}
	defer dev.Close()

	handles := make([]*gralloc.Handle, 0, *count)
	for i := 0; i < *count; i++ {
		h, stride, err := dev.Alloc(*width, *height, gralloc.FormatRGBA8888, gralloc.UsageSwWriteOften)
		if err != nil {
			log.Fatalf("alloc %dx%d: %v", *width, *height, err)
		}
		handles = append(handles, h)

		data, err := m.Lock(h, gralloc.UsageSwWriteOften, 0, 0, *width, *height)
		if err != nil {
			log.Fatalf("lock bo %d: %v", h.ID(), err)
		}
		// Fill with an opaque gray so the write path is exercised.
		for p := 0; p+3 < len(data); p += 4 {
			data[p], data[p+1], data[p+2], data[p+3] = 0x80, 0x80, 0x80, 0xff
		}
		if err := m.Unlock(h); err != nil {
			log.Fatalf("unlock bo %d: %v", h.ID(), err)
		}

		log.Printf("allocated bo %d: %dx%d stride %d px", h.ID(), *width, *height, stride)
	}

	buf := make([]byte, 4096)
	n := dev.Dump(buf)
	os.Stdout.Write(buf[:n])

	for _, h := range handles {
		if err := dev.Free(h); err != nil {
			log.Fatalf("free bo %d: %v", h.ID(), err)
		}
	}
}
