package transcriber

import (
	"errors"

	"github.com/husen-82/android-stt-ver2.0/internal/audio"
	"github.com/husen-82/android-stt-ver2.0/internal/auth"
	"github.com/husen-82/android-stt-ver2.0/internal/ratelimit"
)

// ErrTranscriptionFailed is the catch-all for remote or unexpected
// failures that match no known signal. The wrapped message keeps the
// original diagnostics.
var ErrTranscriptionFailed = errors.New("transcription failed")

// ErrorKind names the taxonomy bucket of err for journaling, metrics
// and HTTP status mapping. A nil error reports "ok".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, audio.ErrFileTooLarge):
		return "file_too_large"
	case errors.Is(err, audio.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, audio.ErrAudioTooLong):
		return "audio_too_long"
	case errors.Is(err, ratelimit.ErrLimitExceeded):
		return "rate_limit_exceeded"
	case errors.Is(err, auth.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, auth.ErrAuthenticationFailed):
		return "authentication_failed"
	default:
		return "transcription_failed"
	}
}

// classified reports whether err already belongs to the taxonomy and
// must propagate unchanged.
func classified(err error) bool {
	return errors.Is(err, audio.ErrFileTooLarge) ||
		errors.Is(err, audio.ErrUnsupportedFormat) ||
		errors.Is(err, audio.ErrAudioTooLong) ||
		errors.Is(err, ratelimit.ErrLimitExceeded) ||
		errors.Is(err, auth.ErrNotInitialized) ||
		errors.Is(err, auth.ErrAuthenticationFailed) ||
		errors.Is(err, ErrTranscriptionFailed)
}
