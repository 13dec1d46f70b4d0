package speech

// Event is one entry in the recognizer's event sequence for a listening session.
// Events are immutable once emitted.
type Event interface {
	isEvent()
}

// Ready signals the recognizer is prepared to receive audio.
type Ready struct{}

// SpeechBegin signals the user started speaking.
type SpeechBegin struct{}

// SpeechEnd signals the user stopped speaking.
type SpeechEnd struct{}

// AudioLevel carries the current input level in dB for UI visualization. It has
// no control-flow weight.
type AudioLevel struct {
	DB float64
}

// Partial carries an interim transcript that may still change.
type Partial struct {
	Text string
}

// Final carries the finalized transcript and any lower-ranked alternates. It
// terminates the sequence.
type Final struct {
	Text       string
	Alternates []string
}

// Failure terminates the sequence with a recognizer error.
type Failure struct {
	Kind ErrorKind
}

func (Ready) isEvent()       {}
func (SpeechBegin) isEvent() {}
func (SpeechEnd) isEvent()   {}
func (AudioLevel) isEvent()  {}
func (Partial) isEvent()     {}
func (Final) isEvent()       {}
func (Failure) isEvent()     {}

// ErrorKind identifies a recognizer failure class.
type ErrorKind string

const (
	ErrAudio          ErrorKind = "audio"
	ErrClient         ErrorKind = "client"
	ErrPermissions    ErrorKind = "permissions"
	ErrNetwork        ErrorKind = "network"
	ErrNetworkTimeout ErrorKind = "network_timeout"
	ErrNoMatch        ErrorKind = "no_match"
	ErrBusy           ErrorKind = "busy"
	ErrServer         ErrorKind = "server"
	ErrSpeechTimeout  ErrorKind = "speech_timeout"
	ErrUnknown        ErrorKind = "unknown"
)

// Message maps an error kind to its stable user-facing string.
func (k ErrorKind) Message() string {
	switch k {
	case ErrAudio:
		return "Audio recording error"
	case ErrClient:
		return "Client side error"
	case ErrPermissions:
		return "Insufficient permissions"
	case ErrNetwork:
		return "Network error"
	case ErrNetworkTimeout:
		return "Network timeout"
	case ErrNoMatch:
		return "No speech match"
	case ErrBusy:
		return "Recognition service busy"
	case ErrServer:
		return "Server error"
	case ErrSpeechTimeout:
		return "No speech input"
	default:
		return "Recognition error"
	}
}

// Silence reports whether the kind denotes "nothing was said" rather than a
// real failure. Silence is never surfaced to the user.
func (k ErrorKind) Silence() bool {
	return k == ErrNoMatch || k == ErrSpeechTimeout
}
