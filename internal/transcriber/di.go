package transcriber

import (
	"time"

	"github.com/husen-82/android-stt-ver2.0/internal/audio"
	"github.com/husen-82/android-stt-ver2.0/internal/auth"
	"github.com/husen-82/android-stt-ver2.0/internal/config"
	"github.com/husen-82/android-stt-ver2.0/internal/journal"
	"github.com/husen-82/android-stt-ver2.0/internal/metrics"
	"github.com/husen-82/android-stt-ver2.0/internal/ratelimit"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*audio.Validator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return audio.NewValidator(audio.Limits{
			MaxFileSizeBytes: cfg.MaxFileSizeBytes,
			MaxAudioSeconds:  cfg.MaxAudioSeconds,
			SampleRateHertz:  cfg.DefaultSampleRateHertz,
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (*ratelimit.Limiter, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return ratelimit.NewLimiter(cfg.RateLimitPerMinute, cfg.RateLimitPerHour), nil
	})
	do.Provide(injector, func(i do.Injector) (*Orchestrator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewOrchestrator(
			Defaults{
				LanguageCode:             cfg.DefaultLanguage,
				AlternativeLanguageCodes: cfg.AlternativeLanguages,
				SampleRateHertz:          cfg.DefaultSampleRateHertz,
				Model:                    cfg.SpeechModel,
				UseEnhanced:              cfg.UseEnhanced,
				RecognizeTimeout:         time.Duration(cfg.RecognizeTimeoutSec) * time.Second,
			},
			do.MustInvoke[auth.Manager](i),
			do.MustInvoke[*audio.Validator](i),
			do.MustInvoke[*ratelimit.Limiter](i),
			do.MustInvoke[Recognizer](i),
			do.MustInvoke[journal.Recorder](i),
			do.MustInvoke[*metrics.Metrics](i),
		), nil
	})
}
