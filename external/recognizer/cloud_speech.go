package recognizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	extauth "github.com/husen-82/android-stt-ver2.0/external/auth"
	"github.com/husen-82/android-stt-ver2.0/internal/audio"
	internalauth "github.com/husen-82/android-stt-ver2.0/internal/auth"
	"github.com/husen-82/android-stt-ver2.0/internal/ratelimit"
	"github.com/husen-82/android-stt-ver2.0/internal/transcriber"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// maxAlternatives asks for the canonical alternative plus the two the
// result shape exposes.
const maxAlternatives = 3

// CloudSpeechRecognizer implements transcriber.Recognizer against the
// Cloud Speech-to-Text v1 API. A client is constructed per request from
// the credential manager's current material, so a refresh is picked up
// on the next call with no stale client hanging around.
type CloudSpeechRecognizer struct {
	auth *extauth.GCPManager
}

func NewCloudSpeechRecognizer(manager *extauth.GCPManager) transcriber.Recognizer {
	return &CloudSpeechRecognizer{auth: manager}
}

func (r *CloudSpeechRecognizer) Recognize(ctx context.Context, req transcriber.Request) (*transcriber.Response, error) {
	opts, err := r.auth.ClientOptions()
	if err != nil {
		return nil, err
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, classifyRemoteError(err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			slog.Warn("speech client close failed", "error", cerr)
		}
	}()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   mapEncoding(req.Encoding),
			SampleRateHertz:            int32(req.SampleRateHertz),
			LanguageCode:               req.LanguageCode,
			AlternativeLanguageCodes:   req.AlternativeLanguageCodes,
			MaxAlternatives:            maxAlternatives,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
			EnableWordConfidence:       true,
			Model:                      req.Model,
			UseEnhanced:                req.UseEnhanced,
			AudioChannelCount:          1,
			ProfanityFilter:            false,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: req.Audio},
		},
	})
	if err != nil {
		return nil, classifyRemoteError(err)
	}

	return decodeResponse(resp), nil
}

func mapEncoding(e transcriber.Encoding) speechpb.RecognitionConfig_AudioEncoding {
	switch e {
	case transcriber.EncodingLinear16:
		return speechpb.RecognitionConfig_LINEAR16
	case transcriber.EncodingMP3:
		return speechpb.RecognitionConfig_MP3
	case transcriber.EncodingOggOpus:
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_WEBM_OPUS
	}
}

func decodeResponse(resp *speechpb.RecognizeResponse) *transcriber.Response {
	out := &transcriber.Response{}
	for _, result := range resp.GetResults() {
		decoded := transcriber.RecognizedResult{}
		for _, alt := range result.GetAlternatives() {
			candidate := transcriber.Candidate{
				Transcript: alt.GetTranscript(),
				Confidence: float64(alt.GetConfidence()),
			}
			for _, w := range alt.GetWords() {
				candidate.Words = append(candidate.Words, transcriber.WordInfo{
					Word:         w.GetWord(),
					StartSeconds: w.GetStartTime().AsDuration().Seconds(),
					EndSeconds:   w.GetEndTime().AsDuration().Seconds(),
					Confidence:   float64(w.GetConfidence()),
				})
			}
			decoded.Alternatives = append(decoded.Alternatives, candidate)
		}
		out.Results = append(out.Results, decoded)
	}
	return out
}

// classifyRemoteError maps the recognizer's error signals onto the
// error taxonomy. The gRPC status code is authoritative; the quota
// substring match is a last-resort fallback for errors that arrive
// without one.
func classifyRemoteError(err error) error {
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.InvalidArgument:
			return fmt.Errorf("%w: recognizer rejected request: %s", audio.ErrUnsupportedFormat, st.Message())
		case codes.ResourceExhausted:
			return fmt.Errorf("%w: remote quota exhausted: %s", ratelimit.ErrLimitExceeded, st.Message())
		case codes.Unauthenticated, codes.PermissionDenied:
			return fmt.Errorf("%w: %s", internalauth.ErrAuthenticationFailed, st.Message())
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") {
		return fmt.Errorf("%w: %v", ratelimit.ErrLimitExceeded, err)
	}
	return err
}
