package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
)

// parseFlags populates Config from short command-line flags:
//
//	-a string   HTTP bind address
//	-r string   gRPC (health) bind address
//	-d string   database DSN, or "memory"
//	-s string   JWT HMAC secret key
//	-e string   environment (development, test, production)
//	-m string   auth mode (password, access_code)
//	-t int      turn timeout, seconds
//	-v int      session token validity, hours
//	-k string   Gemini API key
//	-l string   log backend (slog, zap)
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket; empty disables the attachment archive
//	-g string   S3 region
//	-x string   S3 base endpoint
//
// Provisioning (see CreateCodeEmail):
//
//	-create-code string  email of the access-code user to create
//	-code-name string    display name for that user
//	-code-label string   label stored with the code
//
// os.Args is filtered first so flags owned by other components are ignored.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-r", "-d", "-s", "-e", "-m", "-t", "-v", "-k", "-l", "-u", "-p", "-b", "-g", "-x",
		"-create-code", "-code-name", "-code-label",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "r", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment")
	fs.StringVar(&config.AuthMode, "m", config.AuthMode, "auth mode")

	turnTimeout := fs.Int("t", int(config.TurnTimeout.Seconds()), "turn timeout (in seconds)")
	tokenValidity := fs.Int("v", int(config.TokenValidityDuration.Hours()), "token validity (in hours)")

	fs.StringVar(&config.GeminiAPIKey, "k", config.GeminiAPIKey, "Gemini API key")
	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "x", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.CreateCodeEmail, "create-code", config.CreateCodeEmail, "create an access-code user with this email and exit")
	fs.StringVar(&config.CreateCodeName, "code-name", config.CreateCodeName, "name of the access-code user")
	fs.StringVar(&config.CreateCodeLabel, "code-label", config.CreateCodeLabel, "label of the access code")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TurnTimeout = time.Duration(*turnTimeout) * time.Second
	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Hour
}
