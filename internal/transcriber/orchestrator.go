package transcriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/husen-82/android-stt-ver2.0/internal/audio"
	"github.com/husen-82/android-stt-ver2.0/internal/auth"
	"github.com/husen-82/android-stt-ver2.0/internal/journal"
	"github.com/husen-82/android-stt-ver2.0/internal/metrics"
	"github.com/husen-82/android-stt-ver2.0/internal/ratelimit"
)

const (
	// chunkSizeBytes is both the long-audio threshold and the size of
	// each split chunk.
	chunkSizeBytes = 4 << 20

	// interChunkDelay paces sequential chunk requests so a split upload
	// does not burst the remote quota.
	interChunkDelay = time.Second

	maxAlternatives = 2
)

// Defaults are the process-wide recognition parameters merged under
// caller-supplied options.
type Defaults struct {
	LanguageCode             string
	AlternativeLanguageCodes []string
	SampleRateHertz          int
	Model                    string
	UseEnhanced              bool
	RecognizeTimeout         time.Duration
}

// Orchestrator turns a raw audio buffer into a recognition result. It
// owns the ordering of credential readiness, validation, rate limiting,
// the remote call and result shaping, and never lets an uncategorized
// error past its boundary.
type Orchestrator struct {
	defaults   Defaults
	authMgr    auth.Manager
	validator  *audio.Validator
	limiter    *ratelimit.Limiter
	recognizer Recognizer
	journal    journal.Recorder
	metrics    *metrics.Metrics

	// sleep is swappable so tests can count pacing delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(
	defaults Defaults,
	authMgr auth.Manager,
	validator *audio.Validator,
	limiter *ratelimit.Limiter,
	recognizer Recognizer,
	recorder journal.Recorder,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		defaults:   defaults,
		authMgr:    authMgr,
		validator:  validator,
		limiter:    limiter,
		recognizer: recognizer,
		journal:    recorder,
		metrics:    m,
		sleep:      sleepContext,
	}
}

// Transcribe runs the single-buffer path: credential gate, validation,
// rate limiting, remote recognition, result shaping.
func (o *Orchestrator) Transcribe(ctx context.Context, buf []byte, format audio.Format, opts Options) (*Result, error) {
	res, err := o.transcribeOne(ctx, buf, format, opts)
	o.record(ctx, buf, format, opts, res, err, 1)
	return res, err
}

func (o *Orchestrator) transcribeOne(ctx context.Context, buf []byte, format audio.Format, opts Options) (*Result, error) {
	// The orchestrator is the one tolerated lazy-init call-site; every
	// other component fails fast when the credential is not ready.
	if err := o.authMgr.Initialize(ctx); err != nil {
		return nil, err
	}

	if err := o.validator.Validate(buf, format); err != nil {
		return nil, err
	}

	if err := o.limiter.CheckAndRecord(opts.CallerID); err != nil {
		o.metrics.RateLimitRejections.Inc()
		return nil, err
	}

	req := o.buildRequest(buf, format, opts)

	callCtx := ctx
	if o.defaults.RecognizeTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.defaults.RecognizeTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.recognizer.Recognize(callCtx, req)
	elapsed := time.Since(start)
	o.metrics.RequestDuration.Observe(elapsed.Seconds())

	if err != nil {
		return nil, wrapRemote(err)
	}
	return shapeResult(resp, elapsed.Milliseconds()), nil
}

// TranscribeLong handles recordings of any size. Buffers at or below
// the chunk threshold delegate to the single path; larger ones are
// split into consecutive fixed-size chunks processed strictly in order,
// with a pacing delay between chunks. The first chunk failure aborts
// the whole operation and discards partial results.
func (o *Orchestrator) TranscribeLong(ctx context.Context, buf []byte, format audio.Format, opts Options) (*ChunkedResult, error) {
	if len(buf) <= chunkSizeBytes {
		res, err := o.Transcribe(ctx, buf, format, opts)
		if err != nil {
			return nil, err
		}
		return &ChunkedResult{
			Transcript:       res.Transcript,
			Confidence:       res.Confidence,
			Alternatives:     res.Alternatives,
			Words:            res.Words,
			ProcessingTimeMs: res.ProcessingTimeMs,
			ChunkCount:       1,
		}, nil
	}

	chunkCount := (len(buf) + chunkSizeBytes - 1) / chunkSizeBytes
	slog.Info("splitting long audio", "size_bytes", len(buf), "chunks", chunkCount, "caller_id", opts.CallerID)

	merged := &ChunkedResult{ChunkCount: chunkCount}
	var transcripts []string
	var confidenceSum float64

	for i := 0; i < chunkCount; i++ {
		end := (i + 1) * chunkSizeBytes
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[i*chunkSizeBytes : end]

		// Each chunk carries its own caller suffix so it is rate-limited
		// independently of the siblings and of the caller's other traffic.
		chunkOpts := opts
		chunkOpts.CallerID = fmt.Sprintf("%s-chunk-%d", opts.CallerID, i)

		res, err := o.transcribeOne(ctx, chunk, format, chunkOpts)
		if err != nil {
			o.record(ctx, buf, format, opts, nil, err, chunkCount)
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, chunkCount, err)
		}

		if res.Transcript != "" {
			transcripts = append(transcripts, res.Transcript)
		}
		// Empty chunks still contribute their zero confidence to the
		// average; partially silent recordings skew downward on purpose.
		confidenceSum += res.Confidence
		merged.ProcessingTimeMs += res.ProcessingTimeMs

		if i < chunkCount-1 {
			if err := o.sleep(ctx, interChunkDelay); err != nil {
				return nil, err
			}
		}
	}

	merged.Transcript = strings.Join(transcripts, " ")
	if len(transcripts) > 0 {
		merged.Confidence = confidenceSum / float64(chunkCount)
	}
	o.metrics.ChunksPerRequest.Observe(float64(chunkCount))
	o.record(ctx, buf, format, opts, &Result{ProcessingTimeMs: merged.ProcessingTimeMs}, nil, chunkCount)
	return merged, nil
}

// IsInitialized reports whether the credential gate has been passed,
// for the health endpoint.
func (o *Orchestrator) IsInitialized() bool {
	return o.authMgr.IsAuthenticated()
}

func (o *Orchestrator) buildRequest(buf []byte, format audio.Format, opts Options) Request {
	req := Request{
		Audio:                    buf,
		Encoding:                 EncodingForFormat(format),
		SampleRateHertz:          o.defaults.SampleRateHertz,
		LanguageCode:             o.defaults.LanguageCode,
		AlternativeLanguageCodes: o.defaults.AlternativeLanguageCodes,
		Model:                    o.defaults.Model,
		UseEnhanced:              o.defaults.UseEnhanced,
	}
	if opts.SampleRateHertz > 0 {
		req.SampleRateHertz = opts.SampleRateHertz
	}
	if opts.LanguageCode != "" {
		req.LanguageCode = opts.LanguageCode
	}
	if len(opts.AlternativeLanguageCodes) > 0 {
		req.AlternativeLanguageCodes = opts.AlternativeLanguageCodes
	}
	return req
}

// shapeResult picks the canonical alternative and caps the rest. An
// empty remote response is a valid success.
func shapeResult(resp *Response, elapsedMs int64) *Result {
	if resp == nil || len(resp.Results) == 0 || len(resp.Results[0].Alternatives) == 0 {
		return &Result{ProcessingTimeMs: elapsedMs}
	}

	candidates := resp.Results[0].Alternatives
	primary := candidates[0]

	res := &Result{
		Transcript:       primary.Transcript,
		Confidence:       primary.Confidence,
		Words:            primary.Words,
		ProcessingTimeMs: elapsedMs,
	}
	for _, c := range candidates[1:] {
		if len(res.Alternatives) == maxAlternatives {
			break
		}
		res.Alternatives = append(res.Alternatives, Alternative{
			Transcript: c.Transcript,
			Confidence: c.Confidence,
		})
	}
	return res
}

// wrapRemote keeps classified errors intact and folds everything else
// into the catch-all, preserving the original message for diagnostics.
func wrapRemote(err error) error {
	if classified(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: recognizer call timed out: %v", ErrTranscriptionFailed, err)
	}
	return fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
}

func (o *Orchestrator) record(ctx context.Context, buf []byte, format audio.Format, opts Options, res *Result, err error, chunks int) {
	outcome := ErrorKind(err)
	o.metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	o.metrics.AudioSizeBytes.Observe(float64(len(buf)))

	entry := journal.Entry{
		RequestID:  uuid.NewString(),
		CallerID:   opts.CallerID,
		Format:     string(format),
		SizeBytes:  len(buf),
		Status:     outcome,
		ChunkCount: chunks,
		CreatedAt:  time.Now(),
	}
	if res != nil {
		entry.ProcessingTimeMs = res.ProcessingTimeMs
	}
	if jerr := o.journal.Record(ctx, entry); jerr != nil {
		slog.Warn("journal write failed", "error", jerr, "caller_id", opts.CallerID)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
