package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/dmitrijs2005/gophchat/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file.
// Durations accept strings such as "60s" or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP      string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC      string         `json:"endpoint_addr_grpc"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	Environment           string         `json:"environment"`
	AuthMode              string         `json:"auth_mode"`
	AccessCodePepper      string         `json:"access_code_pepper"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	TurnTimeout           timex.Duration `json:"turn_timeout"`
	GeminiAPIKey          string         `json:"gemini_api_key"`
	DefaultModel          string         `json:"default_model"`
	MultimodalModel       string         `json:"multimodal_model"`
	TranscriptionModel    string         `json:"transcription_model"`
	LogBackend            string         `json:"log_backend"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
}

// parseJson loads the file named by -c/-config, if any, and copies every
// field that is present in it onto config. A missing or invalid file panics.
func parseJson(config *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	set(&config.Environment, c.Environment)
	set(&config.AuthMode, c.AuthMode)
	set(&config.AccessCodePepper, c.AccessCodePepper)
	if c.TokenValidityDuration.Duration > 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.TurnTimeout.Duration > 0 {
		config.TurnTimeout = c.TurnTimeout.Duration
	}
	set(&config.GeminiAPIKey, c.GeminiAPIKey)
	set(&config.DefaultModel, c.DefaultModel)
	set(&config.MultimodalModel, c.MultimodalModel)
	set(&config.TranscriptionModel, c.TranscriptionModel)
	set(&config.LogBackend, c.LogBackend)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}
