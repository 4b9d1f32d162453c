package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/burner/adapters/chain"
	"github.com/layer-3/burner/adapters/events"
	"github.com/layer-3/burner/adapters/store"
	"github.com/layer-3/burner/adapters/tokenizer"
	"github.com/layer-3/burner/config"
	"github.com/layer-3/burner/ports"
	"github.com/layer-3/burner/service"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

var logLevel string

// SetLogger configures the global logger. The flag wins over BURNER_LOG_LEVEL.
func SetLogger(envLevel string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	name := strings.ToLower(logLevel)
	if name == "" {
		name = strings.ToLower(envLevel)
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// logFlags reports the flags given on the command line
func logFlags(flags *pflag.FlagSet) {
	flags.Visit(func(f *pflag.Flag) {
		log.WithField(f.Name, f.Value.String()).Debug("flag set")
	})
}

// app is the wired service graph
type app struct {
	cfg      *config.Config
	burners  *service.BurnerService
	vrf      *service.VRFService
	shell    *service.ShellService
	sessions *service.SessionService

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := log.StandardLogger()
	a := &app{cfg: cfg}

	rpcClient, err := chain.NewRPCClient(ctx, chain.Config{
		RPCURL:          cfg.RPCURL,
		ChainID:         cfg.ChainIDFelt(),
		CairoVersion:    cfg.CairoVersion,
		FeeMultiplier:   cfg.FeeMultiplier,
		ConfirmInterval: cfg.ConfirmInterval,
		ConfirmTimeout:  cfg.ConfirmTimeout,
	}, logger.WithField("component", "chain"))
	if err != nil {
		return nil, err
	}

	wmLogger := watermill.NewStdLogger(false, false)

	var (
		accountStore ports.Store
		publisher    message.Publisher
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		a.closers = append(a.closers, redisClient.Close)

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			wmLogger,
		)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
		accountStore = store.NewRedisStore(redisClient, cfg.AccountsTTL)
		logger.WithField("redis", opts.Addr).Info("using redis account store")
	} else {
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		accountStore = store.NewMemoryStore()
		logger.Warn("no redis url configured, accounts are kept in memory")
	}
	a.closers = append(a.closers, publisher.Close)

	eventPub := events.NewWatermillPublisher(publisher)
	keyring := chain.NewStarkKeyring()

	a.burners = service.NewBurnerService(rpcClient, keyring, accountStore, eventPub, service.BurnerConfig{
		Master:           cfg.Master(),
		AccountClassHash: cfg.AccountClassHash,
		Deployer:         cfg.DeployerAddress,
		FeeToken:         cfg.FeeTokenAddress,
		FundAmount:       cfg.FundAmountBaseUnits(),
	}, logger.WithField("component", "burner"))

	a.vrf = service.NewVRFService(rpcClient, keyring, a.burners, eventPub, service.VRFConfig{
		Provider:          cfg.VRFProviderAddress,
		Consumer:          cfg.ConsumerAddress,
		ConsumeEntrypoint: cfg.ConsumeEntrypoint,
		ReadEntrypoint:    cfg.ReadEntrypoint,
		Strategy:          cfg.Derivation,
		SettleDelay:       cfg.SettleDelay,
	}, logger.WithField("component", "vrf"))

	a.shell = service.NewShellService(a.burners, a.vrf, cfg.AutoCreate, logger.WithField("component", "shell"))

	signKey, err := sessionKey(cfg.SessionKeyFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sessions = service.NewSessionService(tokenizer.NewJWTTokenizer(signKey), cfg.SessionTTL)

	return a, nil
}

// Close releases the clients in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}

// sessionKey parses the PEM session key, or generates one that lives as long as the process
func sessionKey(pemData string) (*ecdsa.PrivateKey, error) {
	if pemData != "" {
		key, err := jwt.ParseECPrivateKeyFromPEM([]byte(pemData))
		if err != nil {
			return nil, fmt.Errorf("failed to parse session key: %w", err)
		}
		return key, nil
	}

	log.Warn("no session key configured, sessions end with the process")
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	return key, nil
}
