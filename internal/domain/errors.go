package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies capture failures for user-facing reporting.
type ErrorKind string

const (
	ErrPermissionDenied   ErrorKind = "permission_denied"
	ErrDeviceNotFound     ErrorKind = "device_not_found"
	ErrDeviceBusy         ErrorKind = "device_busy"
	ErrUnsupported        ErrorKind = "unsupported_runtime"
	ErrEmptyRecording     ErrorKind = "empty_recording"
	ErrOversizedRecording ErrorKind = "oversized_recording"
	ErrNetworkFailure     ErrorKind = "network_failure"
	ErrSpeechTimeout      ErrorKind = "speech_timeout"
	ErrUnknownRecorder    ErrorKind = "unknown_recorder"
)

// CaptureError wraps an underlying failure with its classification.
type CaptureError struct {
	Kind ErrorKind
	Err  error
}

func NewCaptureError(kind ErrorKind, err error) *CaptureError {
	return &CaptureError{Kind: kind, Err: err}
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from an error chain, defaulting to
// ErrUnknownRecorder for unclassified errors.
func KindOf(err error) ErrorKind {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrUnknownRecorder
}

// UserMessage returns the Indonesian message shown for a classification.
func (k ErrorKind) UserMessage() string {
	switch k {
	case ErrPermissionDenied:
		return "Izin mikrofon ditolak. Aktifkan akses mikrofon di pengaturan perangkat."
	case ErrDeviceNotFound:
		return "Mikrofon tidak ditemukan di perangkat ini."
	case ErrDeviceBusy:
		return "Mikrofon sedang digunakan aplikasi lain."
	case ErrUnsupported:
		return "Perangkat ini tidak mendukung perekaman suara."
	case ErrEmptyRecording:
		return "Tidak ada audio yang terekam. Coba lagi."
	case ErrOversizedRecording:
		return "Rekaman terlalu besar (maksimal 10 MB)."
	case ErrNetworkFailure:
		return "Gagal terhubung ke server transkripsi. Periksa koneksi internet."
	case ErrSpeechTimeout:
		return "Tidak ada ucapan terdeteksi. Coba bicara lebih dekat ke mikrofon."
	default:
		return "Terjadi kesalahan saat merekam. Coba lagi."
	}
}

// UserMessageFor is a convenience for surfacing any error to the UI.
func UserMessageFor(err error) string {
	return KindOf(err).UserMessage()
}
