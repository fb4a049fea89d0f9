package frame

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/citadel/engine/core"
	"github.com/spaghettifunk/citadel/engine/math"
	"github.com/spaghettifunk/citadel/engine/renderer/device"
)

// fakeFence is a manually completed fence so tests control exactly when the
// "GPU" catches up.
type fakeFence struct {
	mu        sync.Mutex
	cond      *sync.Cond
	completed uint64
}

func newFakeFence() *fakeFence {
	f := &fakeFence{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *fakeFence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *fakeFence) Complete(value uint64) {
	f.mu.Lock()
	if value > f.completed {
		f.completed = value
	}
	f.mu.Unlock()
	f.cond.Broadcast()
}

func (f *fakeFence) Wait(value uint64, timeout time.Duration) error {
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
		go func() {
			time.Sleep(timeout)
			f.cond.Broadcast()
		}()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.completed < value {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return core.ErrRingStall
		}
		f.cond.Wait()
	}
	return nil
}

type fakeUploadBuffer struct {
	stride uint32
	count  uint32
	data   []byte
}

func (b *fakeUploadBuffer) Load(index uint32, data []byte) error {
	copy(b.data[int(index)*int(b.stride):], data)
	return nil
}

func (b *fakeUploadBuffer) Stride() uint32 { return b.stride }
func (b *fakeUploadBuffer) Count() uint32  { return b.count }

type fakeAllocator struct{}

func (fakeAllocator) Reset() error { return nil }

type fakeBackend struct {
	fence    *fakeFence
	signaled []uint64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{fence: newFakeFence()}
}

func (b *fakeBackend) Initialize(string, uint32, uint32) error { return nil }
func (b *fakeBackend) Shutdown() error                         { return nil }
func (b *fakeBackend) Resized(uint16, uint16) error            { return nil }

func (b *fakeBackend) CreateVertexBuffer([]math.Vertex3D) (device.BufferHandle, error) {
	return 0, nil
}

func (b *fakeBackend) CreateIndexBuffer([]uint32) (device.BufferHandle, error) {
	return 0, nil
}

func (b *fakeBackend) CreateUploadBuffer(stride, count uint32) (device.UploadBuffer, error) {
	return &fakeUploadBuffer{stride: stride, count: count, data: make([]byte, stride*count)}, nil
}

func (b *fakeBackend) CreateCommandAllocator() (device.CommandAllocator, error) {
	return fakeAllocator{}, nil
}

func (b *fakeBackend) CreatePipeline(*device.PipelineConfig) (device.PipelineHandle, error) {
	return 0, nil
}

func (b *fakeBackend) BuildDescriptorTable(*device.DescriptorConfig) error { return nil }

func (b *fakeBackend) BeginFrame(device.CommandAllocator, device.PipelineHandle) (device.CommandRecorder, error) {
	return nil, nil
}

func (b *fakeBackend) Submit(device.CommandRecorder) error { return nil }
func (b *fakeBackend) Present() error                      { return nil }

func (b *fakeBackend) Fence() device.Fence { return b.fence }

func (b *fakeBackend) SignalFence(value uint64) error {
	b.signaled = append(b.signaled, value)
	return nil
}

func TestAdvanceRotatesThroughAllSlots(t *testing.T) {
	ring, err := NewRing(newFakeBackend(), 4, 0)
	require.NoError(t, err)

	assert.Equal(t, uint32(0), ring.Current().Index)
	assert.Equal(t, uint32(1), ring.Advance().Index)
	assert.Equal(t, uint32(2), ring.Advance().Index)
	assert.Equal(t, uint32(0), ring.Advance().Index)
	assert.Equal(t, uint32(1), ring.Advance().Index)
}

func TestWaitIfBusyReturnsForUnsubmittedSlot(t *testing.T) {
	ring, err := NewRing(newFakeBackend(), 4, 0)
	require.NoError(t, err)
	require.NoError(t, ring.WaitIfBusy())
}

func TestSignalCompletionIncrementsFenceValues(t *testing.T) {
	backend := newFakeBackend()
	ring, err := NewRing(backend, 4, 0)
	require.NoError(t, err)

	for want := uint64(1); want <= 3; want++ {
		require.NoError(t, ring.SignalCompletion())
		assert.Equal(t, want, ring.Current().FenceValue)
		ring.Advance()
	}
	assert.Equal(t, []uint64{1, 2, 3}, backend.signaled)
}

func TestWaitIfBusyBlocksUntilFenceReached(t *testing.T) {
	backend := newFakeBackend()
	ring, err := NewRing(backend, 4, 0)
	require.NoError(t, err)

	// Submit all three slots without the fence advancing, then lap back to
	// slot 0. Its fence value 1 is unreached so the CPU must block.
	for i := 0; i < RingDepth; i++ {
		require.NoError(t, ring.SignalCompletion())
		ring.Advance()
	}
	require.Equal(t, uint32(0), ring.Current().Index)

	done := make(chan error, 1)
	go func() {
		done <- ring.WaitIfBusy()
	}()

	select {
	case <-done:
		t.Fatal("WaitIfBusy returned before the fence was completed")
	case <-time.After(50 * time.Millisecond):
	}

	backend.fence.Complete(1)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitIfBusy did not return after the fence completed")
	}
}

func TestWaitIfBusyDoesNotBlockWhenFenceAhead(t *testing.T) {
	backend := newFakeBackend()
	ring, err := NewRing(backend, 4, 0)
	require.NoError(t, err)

	for i := 0; i < RingDepth; i++ {
		require.NoError(t, ring.SignalCompletion())
		ring.Advance()
	}
	backend.fence.Complete(3)

	require.NoError(t, ring.WaitIfBusy())
}

func TestWaitIfBusyStallTimeout(t *testing.T) {
	backend := newFakeBackend()
	ring, err := NewRing(backend, 4, 20*time.Millisecond)
	require.NoError(t, err)

	for i := 0; i < RingDepth; i++ {
		require.NoError(t, ring.SignalCompletion())
		ring.Advance()
	}

	err = ring.WaitIfBusy()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRingStall))
}

func TestDrainWaitsForLastSignaledValue(t *testing.T) {
	backend := newFakeBackend()
	ring, err := NewRing(backend, 4, 0)
	require.NoError(t, err)

	require.NoError(t, ring.Drain())

	require.NoError(t, ring.SignalCompletion())
	ring.Advance()
	require.NoError(t, ring.SignalCompletion())

	done := make(chan error, 1)
	go func() {
		done <- ring.Drain()
	}()

	select {
	case <-done:
		t.Fatal("Drain returned before all fence values completed")
	case <-time.After(50 * time.Millisecond):
	}

	backend.fence.Complete(2)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Drain did not return after the fence completed")
	}
}

func TestDescriptorOffsets(t *testing.T) {
	ring, err := NewRing(newFakeBackend(), 50, 0)
	require.NoError(t, err)

	assert.Equal(t, uint32(110), ring.ObjectDescriptorOffset(2, 10))
	assert.Equal(t, uint32(0), ring.ObjectDescriptorOffset(0, 0))
	assert.Equal(t, uint32(150), ring.PassDescriptorOffset(0))
	assert.Equal(t, uint32(152), ring.PassDescriptorOffset(2))
}

func TestConstantsEncodeStrides(t *testing.T) {
	oc := ObjectConstants{World: math.NewMat4Identity()}
	assert.Len(t, oc.Encode(), ObjectConstantsSize)

	pc := PassConstants{}
	assert.Len(t, pc.Encode(), PassConstantsSize)
}
