package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	binance_connector "github.com/binance/binance-connector-go"

	"github.com/assist-by/kestrel/internal/domain"
	"github.com/assist-by/kestrel/internal/exchange"
)

// Client는 바이낸스 현물 API를 CandleSource로 감쌉니다.
// 공개 시장 데이터만 사용하므로 API 키가 필요 없습니다.
type Client struct {
	api              *binance_connector.Client
	serverTimeOffset time.Duration
	mu               sync.RWMutex
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL string
}

// WithBaseURL은 기본 URL을 설정합니다
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// NewClient는 새로운 바이낸스 클라이언트를 생성합니다
func NewClient(opts ...ClientOption) *Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	var api *binance_connector.Client
	if o.baseURL != "" {
		api = binance_connector.NewClient("", "", o.baseURL)
	} else {
		api = binance_connector.NewClient("", "")
	}
	return &Client{api: api}
}

// GetCandles는 캔들 데이터를 조회합니다
func (c *Client) GetCandles(ctx context.Context, market string, resolution domain.Resolution, limit int) (domain.CandleList, error) {
	if !resolution.IsValid() {
		return nil, fmt.Errorf("지원하지 않는 타임프레임입니다: %s", resolution)
	}

	klines, err := c.api.NewKlinesService().
		Symbol(strings.ToUpper(market)).
		Interval(string(resolution)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("캔들 조회 실패: %w", err)
	}

	candles := make(domain.CandleList, 0, len(klines))
	for _, k := range klines {
		candle := domain.Candle{
			OpenTime: time.UnixMilli(int64(k.OpenTime)).UTC(),
			// 바이낸스의 완결 시각은 다음 캔들 시작 1ms 전입니다
			CloseTime:  time.UnixMilli(int64(k.CloseTime) + 1).UTC(),
			Market:     market,
			Resolution: resolution,
		}

		fields := []struct {
			name string
			raw  string
			dst  *float64
		}{
			{"시가", k.Open, &candle.Open},
			{"고가", k.High, &candle.High},
			{"저가", k.Low, &candle.Low},
			{"종가", k.Close, &candle.Close},
			{"거래량", k.Volume, &candle.Volume},
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f.raw, 64)
			if err != nil {
				return nil, fmt.Errorf("캔들 %s 파싱 실패: %w", f.name, err)
			}
			*f.dst = v
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// GetTicker는 마켓의 현재 시세를 조회합니다. 최근 1분 캔들에서
// 마지막 가격과 거래량을 가져옵니다.
func (c *Client) GetTicker(ctx context.Context, market string) (*exchange.Ticker, error) {
	candles, err := c.GetCandles(ctx, market, domain.Resolution1m, 1)
	if err != nil {
		return nil, fmt.Errorf("티커 조회 실패: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("티커 데이터가 없습니다: %s", market)
	}

	last := candles[len(candles)-1]
	return &exchange.Ticker{
		Market: market,
		At:     last.CloseTime,
		Last:   last.Close,
		Volume: last.Volume,
	}, nil
}

// GetServerTime은 서버 시간을 조회합니다
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	res, err := c.api.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("서버 시간 조회 실패: %w", err)
	}
	return time.UnixMilli(int64(res.ServerTime)).UTC(), nil
}

// SyncTime은 바이낸스 서버와 시간을 동기화합니다
func (c *Client) SyncTime(ctx context.Context) error {
	serverTime, err := c.GetServerTime(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.serverTimeOffset = time.Until(serverTime)
	c.mu.Unlock()
	return nil
}

// ServerNow는 동기화된 오프셋을 반영한 현재 서버 시간을 반환합니다
func (c *Client) ServerNow() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(c.serverTimeOffset)
}
