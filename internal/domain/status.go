package domain

// Status is the recording lifecycle state. Transitions are owned by the
// orchestrator: Idle -> Acquiring -> Recording|Listening -> Processing ->
// Success|Error -> Idle.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusAcquiring  Status = "acquiring"
	StatusRecording  Status = "recording"
	StatusListening  Status = "listening"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// StatusUpdate pairs the typed state with the human-readable text shown to
// the user. Callers switch on Status; Text is display-only.
type StatusUpdate struct {
	Status Status
	Text   string
}

// DisplayText returns the default Indonesian status line for a state.
func (s Status) DisplayText() string {
	switch s {
	case StatusAcquiring:
		return "Meminta izin mikrofon..."
	case StatusRecording:
		return "Merekam suara..."
	case StatusListening:
		return "Mendengarkan..."
	case StatusProcessing:
		return "Memproses rekaman..."
	case StatusSuccess:
		return "Transkripsi berhasil"
	case StatusError:
		return "Gagal merekam"
	default:
		return "Siap merekam"
	}
}

// Active reports whether a session holds or is acquiring device handles.
func (s Status) Active() bool {
	switch s {
	case StatusAcquiring, StatusRecording, StatusListening, StatusProcessing:
		return true
	}
	return false
}
