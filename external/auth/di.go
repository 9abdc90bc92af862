package auth

import (
	internalauth "github.com/husen-82/android-stt-ver2.0/internal/auth"
	"github.com/husen-82/android-stt-ver2.0/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*GCPManager, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewGCPManager(GCPConfig{
			ProjectID:       c.GoogleCloudProjectID,
			CredentialsJSON: c.GoogleCloudCredentialsJSON,
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (internalauth.Manager, error) {
		return do.MustInvoke[*GCPManager](i), nil
	})
}
