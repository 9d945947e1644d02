package moex

import (
	"net/http"
	"strings"
	"time"

	"github.com/camuig/gap-backtest/internal/logger"
)

const DefaultBaseURL = "https://iss.moex.com/iss"

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

func NewClient(log *logger.Logger) *Client {
	return NewClientWithBaseURL(DefaultBaseURL, log)
}

func NewClientWithBaseURL(baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     log,
	}
}
