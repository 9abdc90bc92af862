package recognizer

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/husen-82/android-stt-ver2.0/internal/audio"
	internalauth "github.com/husen-82/android-stt-ver2.0/internal/auth"
	"github.com/husen-82/android-stt-ver2.0/internal/ratelimit"
	"github.com/husen-82/android-stt-ver2.0/internal/transcriber"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestMapEncoding(t *testing.T) {
	cases := map[transcriber.Encoding]speechpb.RecognitionConfig_AudioEncoding{
		transcriber.EncodingWebMOpus:     speechpb.RecognitionConfig_WEBM_OPUS,
		transcriber.EncodingLinear16:     speechpb.RecognitionConfig_LINEAR16,
		transcriber.EncodingMP3:          speechpb.RecognitionConfig_MP3,
		transcriber.EncodingOggOpus:      speechpb.RecognitionConfig_OGG_OPUS,
		transcriber.Encoding("whatever"): speechpb.RecognitionConfig_WEBM_OPUS,
	}
	for enc, want := range cases {
		if got := mapEncoding(enc); got != want {
			t.Fatalf("%s: expected %v, got %v", enc, want, got)
		}
	}
}

func TestClassifyRemoteError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"invalid argument", status.Error(codes.InvalidArgument, "bad encoding"), audio.ErrUnsupportedFormat},
		{"resource exhausted", status.Error(codes.ResourceExhausted, "out of quota"), ratelimit.ErrLimitExceeded},
		{"unauthenticated", status.Error(codes.Unauthenticated, "expired token"), internalauth.ErrAuthenticationFailed},
		{"permission denied", status.Error(codes.PermissionDenied, "no access"), internalauth.ErrAuthenticationFailed},
		{"quota substring fallback", errors.New("Quota exceeded for recognize requests"), ratelimit.ErrLimitExceeded},
		{"rate limit substring fallback", errors.New("upstream Rate Limit hit"), ratelimit.ErrLimitExceeded},
	}
	for _, tc := range cases {
		got := classifyRemoteError(tc.in)
		if !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestClassifyRemoteError_UnknownPassesThrough(t *testing.T) {
	in := errors.New("connection reset by peer")
	if got := classifyRemoteError(in); got != in {
		t.Fatalf("unknown errors must pass through unchanged, got %v", got)
	}
	in = status.Error(codes.Internal, "backend exploded")
	got := classifyRemoteError(in)
	if errors.Is(got, audio.ErrUnsupportedFormat) || errors.Is(got, ratelimit.ErrLimitExceeded) || errors.Is(got, internalauth.ErrAuthenticationFailed) {
		t.Fatalf("internal error must not be misclassified: %v", got)
	}
}

func TestDecodeResponse(t *testing.T) {
	resp := &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{{
			Alternatives: []*speechpb.SpeechRecognitionAlternative{
				{
					Transcript: "hello there",
					Confidence: 0.92,
					Words: []*speechpb.WordInfo{{
						Word:       "hello",
						StartTime:  durationpb.New(100 * time.Millisecond),
						EndTime:    durationpb.New(600 * time.Millisecond),
						Confidence: 0.95,
					}},
				},
				{Transcript: "hallo there", Confidence: 0.41},
			},
		}},
	}

	out := decodeResponse(resp)
	if len(out.Results) != 1 || len(out.Results[0].Alternatives) != 2 {
		t.Fatalf("unexpected shape: %+v", out)
	}
	primary := out.Results[0].Alternatives[0]
	if primary.Transcript != "hello there" {
		t.Fatalf("unexpected transcript %q", primary.Transcript)
	}
	if len(primary.Words) != 1 {
		t.Fatalf("expected one word, got %d", len(primary.Words))
	}
	w := primary.Words[0]
	if w.StartSeconds != 0.1 || w.EndSeconds != 0.6 {
		t.Fatalf("word offsets must be float seconds, got %+v", w)
	}
}

func TestDecodeResponse_Empty(t *testing.T) {
	out := decodeResponse(&speechpb.RecognizeResponse{})
	if len(out.Results) != 0 {
		t.Fatalf("expected no results, got %+v", out)
	}
}
