package gpu

import "sync"

// MemoryDevice keeps a copy of every live upload.
type MemoryDevice struct {
	mu      sync.Mutex
	next    int
	buffers map[int]*MemoryBuffer
}

func NewMemoryDevice() *MemoryDevice {
	return &MemoryDevice{buffers: make(map[int]*MemoryBuffer)}
}

func (d *MemoryDevice) Upload(data []byte, usage Usage) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	b := &MemoryBuffer{
		dev:   d,
		id:    d.next,
		data:  append([]byte(nil), data...),
		usage: usage,
	}
	d.buffers[b.id] = b
	return b, nil
}

// Live reports how many buffers have not been released.
func (d *MemoryDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

// Bytes sums the sizes of the live buffers.
func (d *MemoryDevice) Bytes() (n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.buffers {
		n += len(b.data)
	}
	return
}

type MemoryBuffer struct {
	dev   *MemoryDevice
	id    int
	data  []byte
	usage Usage
}

func (b *MemoryBuffer) Size() int    { return len(b.data) }
func (b *MemoryBuffer) Usage() Usage { return b.usage }

// Data returns the uploaded bytes. The slice must not be modified.
func (b *MemoryBuffer) Data() []byte { return b.data }

func (b *MemoryBuffer) Release() error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if _, ok := b.dev.buffers[b.id]; !ok {
		return ErrReleased
	}
	delete(b.dev.buffers, b.id)
	return nil
}
