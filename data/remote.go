package data

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
)

// RemoteConfig holds the remote sink configuration with declarative tags.
type RemoteConfig struct {
	URL         string        `yaml:"url" validate:"required,url"`
	Timeout     time.Duration `yaml:"timeout" default:"10s" validate:"gte=1s"`
	MaxRetries  int           `yaml:"max_retries" default:"3" validate:"gte=0,lte=10"`
	RetryWaitMS int           `yaml:"retry_wait_ms" default:"100" validate:"gte=0,lte=10000"`
	Debug       bool          `yaml:"debug" default:"false"`
}

// RemoteSink posts each logged mapping as a JSON document to a collector
// endpoint. It satisfies runtime.Sink.
type RemoteSink struct {
	cfg    RemoteConfig
	client *resty.Client
}

func NewRemoteSink(cfg RemoteConfig) (*RemoteSink, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("applying remote sink defaults: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid remote sink config: %w", err)
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(time.Duration(cfg.RetryWaitMS) * time.Millisecond).
		SetDebug(cfg.Debug)

	return &RemoteSink{cfg: cfg, client: client}, nil
}

// LogData implements runtime.Sink. A non-2xx response is an error so the
// failure surfaces in the block that logged the point.
func (s *RemoteSink) LogData(data map[string]any) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(data).
		Post(s.cfg.URL)
	if err != nil {
		return fmt.Errorf("posting data point: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("collector rejected data point: %s", resp.Status())
	}
	return nil
}
