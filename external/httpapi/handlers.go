package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/husen-82/android-stt-ver2.0/internal/audio"
	internalauth "github.com/husen-82/android-stt-ver2.0/internal/auth"
	"github.com/husen-82/android-stt-ver2.0/internal/ratelimit"
	"github.com/husen-82/android-stt-ver2.0/internal/transcriber"
)

type transcribeJSONRequest struct {
	Audio      string `json:"audio"`
	Format     string `json:"format"`
	Language   string `json:"language"`
	SampleRate int    `json:"sampleRate"`
}

type wordJSON struct {
	Word       string  `json:"word"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Confidence float64 `json:"confidence"`
}

type alternativeJSON struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type transcribeResponse struct {
	Transcript       string            `json:"transcript"`
	Confidence       float64           `json:"confidence"`
	Alternatives     []alternativeJSON `json:"alternatives"`
	Words            []wordJSON        `json:"words"`
	ProcessingTimeMs int64             `json:"processingTimeMs"`
	ChunkCount       int               `json:"chunkCount"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	buf, format, opts, err := s.decodeTranscribeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	res, err := s.orch.TranscribeLong(r.Context(), buf, format, opts)
	if err != nil && errors.Is(err, internalauth.ErrAuthenticationFailed) {
		// One supervised refresh + re-attempt; never retried blindly
		// beyond that.
		slog.Warn("authentication error from recognizer; refreshing credential", "caller_id", opts.CallerID)
		s.metrics.CredentialRefreshes.Inc()
		if rerr := s.authMgr.Refresh(r.Context()); rerr == nil {
			res, err = s.orch.TranscribeLong(r.Context(), buf, format, opts)
		}
	}
	if err != nil {
		s.writeTranscribeError(w, err)
		return
	}

	resp := transcribeResponse{
		Transcript:       res.Transcript,
		Confidence:       res.Confidence,
		Alternatives:     make([]alternativeJSON, 0, len(res.Alternatives)),
		Words:            make([]wordJSON, 0, len(res.Words)),
		ProcessingTimeMs: res.ProcessingTimeMs,
		ChunkCount:       res.ChunkCount,
	}
	for _, a := range res.Alternatives {
		resp.Alternatives = append(resp.Alternatives, alternativeJSON{Transcript: a.Transcript, Confidence: a.Confidence})
	}
	for _, word := range res.Words {
		resp.Words = append(resp.Words, wordJSON{
			Word:       word.Word,
			StartTime:  word.StartSeconds,
			EndTime:    word.EndSeconds,
			Confidence: word.Confidence,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeTranscribeRequest accepts either a JSON body with base64 audio
// or a raw binary upload with parameters in the query string.
func (s *Server) decodeTranscribeRequest(r *http.Request) ([]byte, audio.Format, transcriber.Options, error) {
	opts := transcriber.Options{CallerID: callerIdentity(r)}

	// One byte past the ceiling is enough for the validator to reject
	// oversized uploads without buffering arbitrarily much.
	limit := int64(s.cfg.MaxFileSizeBytes) + 1

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req transcribeJSONRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 2*limit)).Decode(&req); err != nil {
			return nil, "", opts, errors.New("invalid JSON body")
		}
		buf, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			return nil, "", opts, errors.New("audio is not valid base64")
		}
		opts.LanguageCode = req.Language
		opts.SampleRateHertz = req.SampleRate
		return buf, audio.Format(req.Format), opts, nil
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		return nil, "", opts, errors.New("failed to read request body")
	}
	q := r.URL.Query()
	opts.LanguageCode = q.Get("language")
	if v := q.Get("sampleRate"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil {
			opts.SampleRateHertz = rate
		}
	}
	return buf, audio.Format(q.Get("format")), opts, nil
}

func (s *Server) writeTranscribeError(w http.ResponseWriter, err error) {
	kind := transcriber.ErrorKind(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, audio.ErrFileTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, audio.ErrUnsupportedFormat), errors.Is(err, audio.ErrAudioTooLong):
		status = http.StatusBadRequest
	case errors.Is(err, ratelimit.ErrLimitExceeded):
		status = http.StatusTooManyRequests
		var le *ratelimit.LimitError
		if errors.As(err, &le) && le.RetryAfter > 0 {
			seconds := int(le.RetryAfter.Round(time.Second).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	case errors.Is(err, internalauth.ErrAuthenticationFailed), errors.Is(err, internalauth.ErrNotInitialized):
		status = http.StatusBadGateway
	}
	writeError(w, status, kind, err.Error())
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	limits := s.validator.Limits()
	formats := audio.SupportedFormats()
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, string(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"maxFileSizeBytes": limits.MaxFileSizeBytes,
		"maxAudioSeconds":  limits.MaxAudioSeconds,
		"sampleRateHertz":  limits.SampleRateHertz,
		"supportedFormats": names,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	stats := s.limiter.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"initialized":   s.orch.IsInitialized(),
		"authenticated": s.authMgr.IsAuthenticated(),
		"totalRequests": stats.TotalRecorded,
		"activeCallers": stats.ActiveCallers,
		"uptimeSeconds": int(time.Since(s.startTime).Seconds()),
	})
}

// callerIdentity is the rate-limit key: the first forwarded address
// when the service sits behind a proxy, the peer address otherwise.
func callerIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}
