package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/layer-3/burner/config"
	"github.com/layer-3/burner/core"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionKeyFromPEM(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	data := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

	parsed, err := sessionKey(string(data))
	require.NoError(t, err)
	assert.True(t, key.Equal(parsed))
}

func TestSessionKeyInvalid(t *testing.T) {
	_, err := sessionKey("not a pem block")
	assert.ErrorContains(t, err, "failed to parse session key")
}

func TestSessionKeyEphemeral(t *testing.T) {
	a, err := sessionKey("")
	require.NoError(t, err)
	b, err := sessionKey("")
	require.NoError(t, err)
	assert.False(t, a.Equal(b))
}

func TestSetLogger(t *testing.T) {
	defer func(prev string) { logLevel = prev }(logLevel)
	defer log.SetLevel(log.GetLevel())

	logLevel = ""
	SetLogger("debug")
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	logLevel = "warn"
	SetLogger("debug")
	assert.Equal(t, log.WarnLevel, log.GetLevel())

	logLevel = ""
	SetLogger("loud")
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}

func TestNewAppInMemory(t *testing.T) {
	cfg := &config.Config{
		RPCURL:             "http://127.0.0.1:1",
		ChainID:            "WP_STARTER_VRF",
		VRFProviderAddress: core.MustParseFelt("0x10"),
		ConsumerAddress:    core.MustParseFelt("0x20"),
		ConsumeEntrypoint:  "get_random_number",
		Derivation:         core.DeriveFromHash,
		ConfirmInterval:    10 * time.Millisecond,
		ConfirmTimeout:     time.Second,
		FeeMultiplier:      decimal.NewFromFloat(1.5),
		MasterAddress:      core.MustParseFelt("0x1"),
		MasterPrivateKey:   "0x2",
		AccountClassHash:   core.MustParseFelt("0x3"),
		DeployerAddress:    core.UniversalDeployerAddress,
		FeeTokenAddress:    core.MustParseFelt("0x4"),
		FundAmount:         decimal.RequireFromString("0.01"),
		AutoCreate:         true,
		SessionTTL:         time.Hour,
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	// nothing listens on the node address, so the session cannot bootstrap
	err = a.shell.Bootstrap(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrInitialization)

	_, token, err := a.sessions.Start()
	require.NoError(t, err)
	_, err = a.sessions.Resume(token)
	assert.NoError(t, err)
}

func TestNewAppBadRedisURL(t *testing.T) {
	cfg := &config.Config{
		RPCURL:     "http://127.0.0.1:1",
		RedisURL:   "mysql://nope",
		FundAmount: decimal.RequireFromString("0.01"),
	}

	_, err := newApp(context.Background(), cfg)
	assert.ErrorContains(t, err, "failed to parse redis url")
}
