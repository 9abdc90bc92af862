package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/husen-82/android-stt-ver2.0/internal/config"
)

type envConfig struct {
	Env                        string   `env:"ENV" envDefault:"production"`
	HTTPAddress                string   `env:"HTTP_ADDRESS" envDefault:"0.0.0.0"`
	HTTPPort                   int      `env:"HTTP_PORT" envDefault:"8080"`
	GoogleCloudProjectID       string   `env:"GOOGLE_CLOUD_PROJECT_ID,required"`
	GoogleCloudCredentialsJSON string   `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	WorkloadIdentityPool       string   `env:"WORKLOAD_IDENTITY_POOL"`
	WorkloadIdentityProvider   string   `env:"WORKLOAD_IDENTITY_PROVIDER"`
	ServiceAccountEmail        string   `env:"SERVICE_ACCOUNT_EMAIL"`
	DefaultLanguage            string   `env:"DEFAULT_LANGUAGE" envDefault:"ja-JP"`
	AlternativeLanguages       []string `env:"ALTERNATIVE_LANGUAGES" envSeparator:","`
	DefaultSampleRateHertz     int      `env:"DEFAULT_SAMPLE_RATE_HERTZ" envDefault:"48000"`
	SpeechModel                string   `env:"SPEECH_MODEL" envDefault:"latest_long"`
	UseEnhanced                bool     `env:"USE_ENHANCED" envDefault:"true"`
	RateLimitPerMinute         int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	RateLimitPerHour           int      `env:"RATE_LIMIT_PER_HOUR" envDefault:"100"`
	MaxFileSizeBytes           int      `env:"MAX_FILE_SIZE_BYTES" envDefault:"10485760"`
	MaxAudioSeconds            int      `env:"MAX_AUDIO_SECONDS" envDefault:"300"`
	RecognizeTimeoutSec        int      `env:"RECOGNIZE_TIMEOUT_SEC" envDefault:"60"`
	DatabaseURL                string   `env:"DATABASE_URL"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		HTTPAddress:                raw.HTTPAddress,
		HTTPPort:                   raw.HTTPPort,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		WorkloadIdentityPool:       raw.WorkloadIdentityPool,
		WorkloadIdentityProvider:   raw.WorkloadIdentityProvider,
		ServiceAccountEmail:        raw.ServiceAccountEmail,
		DefaultLanguage:            raw.DefaultLanguage,
		AlternativeLanguages:       raw.AlternativeLanguages,
		DefaultSampleRateHertz:     raw.DefaultSampleRateHertz,
		SpeechModel:                raw.SpeechModel,
		UseEnhanced:                raw.UseEnhanced,
		RateLimitPerMinute:         raw.RateLimitPerMinute,
		RateLimitPerHour:           raw.RateLimitPerHour,
		MaxFileSizeBytes:           raw.MaxFileSizeBytes,
		MaxAudioSeconds:            raw.MaxAudioSeconds,
		RecognizeTimeoutSec:        raw.RecognizeTimeoutSec,
		DatabaseURL:                raw.DatabaseURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
