package recognizer

import (
	extauth "github.com/husen-82/android-stt-ver2.0/external/auth"
	"github.com/husen-82/android-stt-ver2.0/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Recognizer, error) {
		manager := do.MustInvoke[*extauth.GCPManager](i)
		return NewCloudSpeechRecognizer(manager), nil
	})
}
