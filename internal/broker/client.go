package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/russianinvestments/invest-api-go-sdk/investgo"

	"github.com/camuig/gap-backtest/internal/config"
	"github.com/camuig/gap-backtest/internal/logger"
)

const (
	sandboxEndpoint = "sandbox-invest-public-api.tinkoff.ru:443"
	liveEndpoint    = "invest-public-api.tinkoff.ru:443"
)

// BrokerClient is a read-only market data client of the T-Invest API.
type BrokerClient struct {
	Client *investgo.Client
	Config *config.Config
	Logger *logger.Logger

	uids sync.Map // ticker -> instrument UID
}

func NewBrokerClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (*BrokerClient, error) {
	if cfg.Tinkoff.Token == "" {
		return nil, fmt.Errorf("tinkoff.token is required")
	}

	endpoint := liveEndpoint
	if cfg.IsSandbox() {
		endpoint = sandboxEndpoint
	}

	investCfg := investgo.Config{
		EndPoint:  endpoint,
		Token:     cfg.Tinkoff.Token,
		AccountId: cfg.Tinkoff.AccountID,
		AppName:   "gap-backtest",
	}

	client, err := investgo.NewClient(ctx, investCfg, log)
	if err != nil {
		return nil, fmt.Errorf("create investgo client: %w", err)
	}

	return &BrokerClient{
		Client: client,
		Config: cfg,
		Logger: log,
	}, nil
}

func (bc *BrokerClient) Stop() error {
	return bc.Client.Stop()
}
