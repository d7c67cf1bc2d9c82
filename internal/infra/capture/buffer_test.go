package capture

import (
	"bytes"
	"io"
	"testing"
)

func TestSeekBufferWriteAndPatch(t *testing.T) {
	b := &seekBuffer{}

	b.Write([]byte("RIFF....WAVE"))
	if _, err := b.Seek(4, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	b.Write([]byte("1234"))

	if !bytes.Equal(b.Bytes(), []byte("RIFF1234WAVE")) {
		t.Errorf("buffer = %q, overwrite at seek position failed", b.Bytes())
	}
}

func TestSeekBufferWhence(t *testing.T) {
	b := &seekBuffer{}
	b.Write([]byte("abcdef"))

	if pos, _ := b.Seek(-2, io.SeekEnd); pos != 4 {
		t.Errorf("SeekEnd pos = %d, want 4", pos)
	}
	if pos, _ := b.Seek(1, io.SeekCurrent); pos != 5 {
		t.Errorf("SeekCurrent pos = %d, want 5", pos)
	}
	if _, err := b.Seek(-10, io.SeekStart); err == nil {
		t.Error("negative position must fail")
	}
	if _, err := b.Seek(0, 42); err == nil {
		t.Error("invalid whence must fail")
	}
}

func TestSeekBufferGrowsPastEnd(t *testing.T) {
	b := &seekBuffer{}
	b.Write([]byte("ab"))
	b.Seek(4, io.SeekStart)
	b.Write([]byte("cd"))

	got := b.Bytes()
	if len(got) != 6 || string(got[4:]) != "cd" {
		t.Errorf("buffer = %q, want a zero-filled gap then cd", got)
	}
}
