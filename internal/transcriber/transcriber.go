package transcriber

import (
	"context"

	"github.com/husen-82/android-stt-ver2.0/internal/audio"
)

// Encoding is the recognizer-native encoding token sent with a request.
type Encoding string

const (
	EncodingWebMOpus Encoding = "WEBM_OPUS"
	EncodingLinear16 Encoding = "LINEAR16"
	EncodingMP3      Encoding = "MP3"
	EncodingOggOpus  Encoding = "OGG_OPUS"
)

// EncodingForFormat maps a declared upload format to its recognizer
// encoding. Unknown formats fall back to WEBM_OPUS: format mismatch is
// caught upstream by the validator's allow-list, so the fallback is
// lenient rather than an error.
func EncodingForFormat(f audio.Format) Encoding {
	switch f {
	case audio.FormatWebM:
		return EncodingWebMOpus
	case audio.FormatWAV:
		return EncodingLinear16
	case audio.FormatMP3:
		return EncodingMP3
	case audio.FormatOGG:
		return EncodingOggOpus
	}
	return EncodingWebMOpus
}

// Options are per-request recognition parameters. Zero values are
// filled from process-wide defaults by the orchestrator.
type Options struct {
	LanguageCode             string
	AlternativeLanguageCodes []string
	SampleRateHertz          int
	CallerID                 string
}

// Alternative is a lower-ranked transcript candidate.
type Alternative struct {
	Transcript string
	Confidence float64
}

// WordInfo carries per-word timing for the canonical alternative.
type WordInfo struct {
	Word         string
	StartSeconds float64
	EndSeconds   float64
	Confidence   float64
}

// Result is the outcome of one successful recognition call. An empty
// transcript with confidence 0 is a valid success (silence or
// unrecognizable audio), not an error.
type Result struct {
	Transcript       string
	Confidence       float64
	Alternatives     []Alternative
	Words            []WordInfo
	ProcessingTimeMs int64
}

// ChunkedResult aggregates the chunk results of one long recording.
// ProcessingTimeMs is a sum over chunks, reflecting the wall-clock cost
// of sequential processing including pacing delays, not a maximum.
type ChunkedResult struct {
	Transcript       string
	Confidence       float64
	Alternatives     []Alternative
	Words            []WordInfo
	ProcessingTimeMs int64
	ChunkCount       int
}

// Request is the normalized payload handed to the remote recognizer.
type Request struct {
	Audio                    []byte
	Encoding                 Encoding
	SampleRateHertz          int
	LanguageCode             string
	AlternativeLanguageCodes []string
	Model                    string
	UseEnhanced              bool
}

// Candidate mirrors one ranked alternative of the remote response.
type Candidate struct {
	Transcript string
	Confidence float64
	Words      []WordInfo
}

// RecognizedResult is one ranked result group of the remote response.
type RecognizedResult struct {
	Alternatives []Candidate
}

// Response is the remote recognizer's answer, already decoded but not
// yet shaped into a Result.
type Response struct {
	Results []RecognizedResult
}

// Recognizer invokes the remote speech backend with an encoded audio
// buffer and returns its ranked transcript alternatives. Remote failures
// must come back already classified into the error taxonomy where a
// known signal matches.
type Recognizer interface {
	Recognize(ctx context.Context, req Request) (*Response, error)
}
