package audio

import (
	"errors"
	"fmt"
)

// Format is the caller-declared container format of an upload.
type Format string

const (
	FormatWebM Format = "webm"
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatOGG  Format = "ogg"
)

var (
	ErrFileTooLarge      = errors.New("audio file exceeds maximum size")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrAudioTooLong      = errors.New("audio exceeds maximum duration")
)

// SupportedFormats returns the allow-list in a stable order.
func SupportedFormats() []Format {
	return []Format{FormatWebM, FormatWAV, FormatMP3, FormatOGG}
}

type Limits struct {
	MaxFileSizeBytes int
	MaxAudioSeconds  int
	SampleRateHertz  int
}

// Validator performs stateless checks on uploaded audio before any
// remote recognition call is issued.
type Validator struct {
	limits Limits
}

func NewValidator(limits Limits) *Validator {
	return &Validator{limits: limits}
}

func (v *Validator) Limits() Limits {
	return v.limits
}

// Validate checks size, declared format and estimated duration, in that
// order; the first failing check wins. The duration estimate assumes
// 16-bit samples at the configured rate and is an approximation, not a
// codec-accurate decode.
func (v *Validator) Validate(buf []byte, declared Format) error {
	if len(buf) > v.limits.MaxFileSizeBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(buf), v.limits.MaxFileSizeBytes)
	}
	if !isSupported(declared) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, declared)
	}
	estimatedSeconds := float64(len(buf)) / float64(v.limits.SampleRateHertz*2)
	if estimatedSeconds > float64(v.limits.MaxAudioSeconds) {
		return fmt.Errorf("%w: estimated %.1fs (limit %ds)", ErrAudioTooLong, estimatedSeconds, v.limits.MaxAudioSeconds)
	}
	return nil
}

func isSupported(f Format) bool {
	switch f {
	case FormatWebM, FormatWAV, FormatMP3, FormatOGG:
		return true
	}
	return false
}
