package capture

import (
	"bytes"
	"encoding/binary"
)

const wavHeaderSize = 44

// pcm16FromFloat32 converts one [-1,1] float sample to 16-bit signed PCM.
// Out-of-range input is clamped before conversion. The asymmetric scale
// (32768 negative, 32767 positive) keeps full-scale samples representable.
func pcm16FromFloat32(s float32) int16 {
	if s < -1 {
		s = -1
	}
	if s > 1 {
		s = 1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// EncodeWAV16 builds a mono 16-bit little-endian WAV file from float32
// samples. The result is always exactly 44 + 2*len(samples) bytes: a
// RIFF/WAVE header, a PCM "fmt " sub-chunk, and the data sub-chunk.
func EncodeWAV16(samples []float32, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+dataSize))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, int32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, int32(16))           // sub-chunk size
	binary.Write(buf, binary.LittleEndian, int16(1))            // PCM format
	binary.Write(buf, binary.LittleEndian, int16(1))            // mono
	binary.Write(buf, binary.LittleEndian, int32(sampleRate))   // sample rate
	binary.Write(buf, binary.LittleEndian, int32(sampleRate*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, int16(2))            // block align
	binary.Write(buf, binary.LittleEndian, int16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, int32(dataSize))
	for _, s := range samples {
		binary.Write(buf, binary.LittleEndian, pcm16FromFloat32(s))
	}

	return buf.Bytes()
}

// streamingWAVHeader is a WAV header with unknown-length size fields, used
// when PCM data is emitted incrementally and the total is not known up
// front. Players treat the 0xFFFFFFFF sizes as "read until EOF".
func streamingWAVHeader(sampleRate, channels int) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(0xFFFFFFFF))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, int32(16))
	binary.Write(buf, binary.LittleEndian, int16(1))
	binary.Write(buf, binary.LittleEndian, int16(channels))
	binary.Write(buf, binary.LittleEndian, int32(sampleRate))
	binary.Write(buf, binary.LittleEndian, int32(sampleRate*channels*2))
	binary.Write(buf, binary.LittleEndian, int16(channels*2))
	binary.Write(buf, binary.LittleEndian, int16(16))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(0xFFFFFFFF))

	return buf.Bytes()
}
