package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// envFile is loaded before the process environment is read. Variables that
// are already set win over the file.
var envFile = ".env"

// parseEnv overlays Config with environment variables.
//
//	HTTP_ADDR, GRPC_ADDR, DATABASE_DSN (or DATABASE_URL), JWT_SECRET,
//	APP_ENV, AUTH_MODE, ACCESS_CODE_PEPPER, TOKEN_TTL, TURN_TIMEOUT,
//	GEMINI_API_KEY, DEFAULT_MODEL, MULTIMODAL_MODEL, TRANSCRIPTION_MODEL,
//	LOG_BACKEND, S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION,
//	S3_BASE_ENDPOINT
//
// Durations use time.ParseDuration syntax. Malformed values panic, as do
// unreadable .env files other than a missing one.
func parseEnv(config *Config) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := os.LookupEnv(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	dur := func(dst *time.Duration, key string) {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}

	str(&config.EndpointAddrHTTP, "HTTP_ADDR")
	str(&config.EndpointAddrGRPC, "GRPC_ADDR")
	str(&config.DatabaseDSN, "DATABASE_DSN", "DATABASE_URL")
	str(&config.SecretKey, "JWT_SECRET")
	str(&config.Environment, "APP_ENV")
	str(&config.AuthMode, "AUTH_MODE")
	str(&config.AccessCodePepper, "ACCESS_CODE_PEPPER")
	dur(&config.TokenValidityDuration, "TOKEN_TTL")
	dur(&config.TurnTimeout, "TURN_TIMEOUT")
	str(&config.GeminiAPIKey, "GEMINI_API_KEY")
	str(&config.DefaultModel, "DEFAULT_MODEL")
	str(&config.MultimodalModel, "MULTIMODAL_MODEL")
	str(&config.TranscriptionModel, "TRANSCRIPTION_MODEL")
	str(&config.LogBackend, "LOG_BACKEND")
	str(&config.S3RootUser, "S3_ROOT_USER")
	str(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	str(&config.S3Bucket, "S3_BUCKET")
	str(&config.S3Region, "S3_REGION")
	str(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
}
