package capture

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoMicrophone captures float32 frames from the default input device.
// Each Start opens a fresh audio context so a stopped session leaves no
// device handles behind.
type MalgoMicrophone struct {
	logger *slog.Logger

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

func NewMalgoMicrophone(logger *slog.Logger) *MalgoMicrophone {
	return &MalgoMicrophone{logger: logger}
}

func (m *MalgoMicrophone) Start(sampleRate, channels int, onData func(samples []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return fmt.Errorf("malgo: already capturing")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("initializing audio context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(channels)
	cfg.SampleRate = uint32(sampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pSample []byte, frameCount uint32) {
			onData(bytesToFloat32(pSample, frameCount*uint32(channels)))
		},
	}

	device, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("%w: %v", ErrDeviceMissing, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("%w: %v", ErrDeviceInUse, err)
	}

	m.ctx = ctx
	m.device = device
	m.logger.Debug("capture device started",
		"sample_rate", sampleRate, "channels", channels)
	return nil
}

// Stop releases the device synchronously and closes the audio context in
// the background; context teardown can block on the audio backend.
func (m *MalgoMicrophone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	if m.ctx != nil {
		ctx := m.ctx
		m.ctx = nil
		go func() {
			ctx.Uninit()
			ctx.Free()
		}()
	}
	return nil
}

// bytesToFloat32 converts raw little-endian float32 capture bytes.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}
