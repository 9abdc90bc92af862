package httpapi

import (
	"github.com/husen-82/android-stt-ver2.0/internal/audio"
	internalauth "github.com/husen-82/android-stt-ver2.0/internal/auth"
	"github.com/husen-82/android-stt-ver2.0/internal/config"
	"github.com/husen-82/android-stt-ver2.0/internal/metrics"
	"github.com/husen-82/android-stt-ver2.0/internal/ratelimit"
	"github.com/husen-82/android-stt-ver2.0/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		return NewServer(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*transcriber.Orchestrator](i),
			do.MustInvoke[internalauth.Manager](i),
			do.MustInvoke[*ratelimit.Limiter](i),
			do.MustInvoke[*audio.Validator](i),
			do.MustInvoke[*metrics.Metrics](i),
		), nil
	})
}
