package config

import "fmt"

type Config struct {
	Env                        string
	HTTPAddress                string
	HTTPPort                   int
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	WorkloadIdentityPool       string
	WorkloadIdentityProvider   string
	ServiceAccountEmail        string
	DefaultLanguage            string
	AlternativeLanguages       []string
	DefaultSampleRateHertz     int
	SpeechModel                string
	UseEnhanced                bool
	RateLimitPerMinute         int
	RateLimitPerHour           int
	MaxFileSizeBytes           int
	MaxAudioSeconds            int
	RecognizeTimeoutSec        int
	DatabaseURL                string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be a valid port, got %d", c.HTTPPort)
	}
	if c.DefaultSampleRateHertz <= 0 {
		return fmt.Errorf("DEFAULT_SAMPLE_RATE_HERTZ must be positive, got %d", c.DefaultSampleRateHertz)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}
	if c.RateLimitPerHour < c.RateLimitPerMinute {
		return fmt.Errorf("RATE_LIMIT_PER_HOUR must be at least RATE_LIMIT_PER_MINUTE, got %d", c.RateLimitPerHour)
	}
	if c.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_BYTES must be positive, got %d", c.MaxFileSizeBytes)
	}
	if c.MaxAudioSeconds <= 0 {
		return fmt.Errorf("MAX_AUDIO_SECONDS must be positive, got %d", c.MaxAudioSeconds)
	}
	if c.RecognizeTimeoutSec <= 0 {
		return fmt.Errorf("RECOGNIZE_TIMEOUT_SEC must be positive, got %d", c.RecognizeTimeoutSec)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "DEFAULT_LANGUAGE", value: c.DefaultLanguage},
		{name: "SPEECH_MODEL", value: c.SpeechModel},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
