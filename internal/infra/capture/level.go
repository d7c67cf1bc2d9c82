package capture

import (
	"math"
	"math/cmplx"
	"sync"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// levelFFTSize is the analysis window, matching the analyser's fixed
	// FFT size. Must be a power of two.
	levelFFTSize = 2048

	// levelInterval approximates animation-frame cadence.
	levelInterval = 16 * time.Millisecond

	// levelBoost scales signal RMS so typical speech lands mid-meter.
	levelBoost = 2.5
)

// LevelMonitor produces a normalized [0,1] loudness sample from the most
// recent window of raw audio, at animation-frame cadence. Strategies push
// samples from their device callbacks; the monitor's ticker reads the
// latest window and reports through onLevel. The loop is torn down the
// moment Stop is called so no ticks outlive the capture session.
type LevelMonitor struct {
	onLevel func(float64)
	fft     *fourier.FFT

	mu     sync.Mutex
	window []float64
	filled int

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewLevelMonitor(onLevel func(float64)) *LevelMonitor {
	return &LevelMonitor{
		onLevel: onLevel,
		fft:     fourier.NewFFT(levelFFTSize),
		window:  make([]float64, levelFFTSize),
		stopCh:  make(chan struct{}),
	}
}

// Push appends captured samples, keeping only the most recent window.
func (m *LevelMonitor) Push(samples []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(samples) >= levelFFTSize {
		tail := samples[len(samples)-levelFFTSize:]
		for i, s := range tail {
			m.window[i] = float64(s)
		}
		m.filled = levelFFTSize
		return
	}

	keep := levelFFTSize - len(samples)
	copy(m.window, m.window[levelFFTSize-keep:])
	for i, s := range samples {
		m.window[keep+i] = float64(s)
	}
	m.filled += len(samples)
	if m.filled > levelFFTSize {
		m.filled = levelFFTSize
	}
}

// Start launches the sampling loop. It returns immediately.
func (m *LevelMonitor) Start() {
	go func() {
		ticker := time.NewTicker(levelInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.onLevel(m.sample())
			}
		}
	}()
}

// Stop cancels the sampling loop. Safe to call more than once.
func (m *LevelMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *LevelMonitor) sample() float64 {
	m.mu.Lock()
	if m.filled == 0 {
		m.mu.Unlock()
		return 0
	}
	snapshot := make([]float64, levelFFTSize)
	copy(snapshot, m.window)
	m.mu.Unlock()

	return loudness(m.fft, snapshot)
}

// loudness estimates overall signal level from the frequency-domain
// magnitudes of one window, normalized into [0,1]. By Parseval the summed
// squared magnitudes recover the time-domain RMS, which is then scaled by
// the tuned reference boost and clamped.
func loudness(fft *fourier.FFT, window []float64) float64 {
	coeffs := fft.Coefficients(nil, window)

	var sumSq float64
	for _, c := range coeffs {
		mag := cmplx.Abs(c)
		sumSq += mag * mag
	}

	n := float64(len(window))
	rms := math.Sqrt(2*sumSq) / n

	level := rms * levelBoost
	if level > 1 {
		level = 1
	}
	if level < 0 {
		level = 0
	}
	return level
}
