package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.Environment = config.EnvTest
	c.DatabaseDSN = config.MemoryDSN
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.EndpointAddrGRPC = "127.0.0.1:0"
	return c
}

func TestNewApp_Memory(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)
	assert.Nil(t, app.db)
	assert.NotNil(t, app.handler)
	assert.NotNil(t, app.ops)
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	c := memoryConfig()
	c.Environment = config.EnvProduction

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInsecureSecretKey))
}

func TestNewApp_UnknownLogBackend(t *testing.T) {
	c := memoryConfig()
	c.LogBackend = "logrus"

	_, err := NewApp(context.Background(), c)
	assert.Error(t, err)
}

func TestProvisionAccessCode(t *testing.T) {
	c := memoryConfig()
	c.AuthMode = config.AuthModeAccessCode
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	ctx := context.Background()

	code, err := app.ProvisionAccessCode(ctx, "Ops@example.com", "Ops", "launch")
	require.NoError(t, err)
	require.Len(t, code, 10)

	u, token, err := app.users.LoginCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", u.Email)
	assert.NotEmpty(t, token)

	_, err = app.ProvisionAccessCode(ctx, "ops@example.com", "", "")
	assert.Error(t, err)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}
