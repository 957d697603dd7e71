package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/assist-by/kestrel/internal/domain"
	"github.com/assist-by/kestrel/internal/engine"
	"github.com/assist-by/kestrel/internal/exchange"
	"github.com/assist-by/kestrel/internal/notification"
)

// RetryConfig는 재시도 설정을 정의합니다
type RetryConfig struct {
	MaxRetries int           // 최대 재시도 횟수
	BaseDelay  time.Duration // 기본 대기 시간
	MaxDelay   time.Duration // 최대 대기 시간
	Factor     float64       // 대기 시간 증가 계수
}

// DefaultRetryConfig는 기본 재시도 설정을 반환합니다
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Factor:     2.0,
	}
}

// Collector는 거래소에서 캔들을 수집해 엔진에 공급합니다.
// 해상도별 마지막 반영 시각을 기억해 같은 캔들을 두 번 전달하지 않습니다.
type Collector struct {
	source   exchange.CandleSource
	engine   *engine.Engine
	notifier notification.Notifier

	candleLimit int // 앵커 해상도 과거 캔들 조회 개수
	finerLimit  int // 추적 해상도 과거 캔들 조회 개수
	pollLimit   int // 주기 수집 시 해상도당 조회 개수

	retry RetryConfig

	mu       sync.Mutex
	lastSeen map[domain.Resolution]time.Time
}

// CollectorOption은 수집기의 옵션을 정의합니다
type CollectorOption func(*Collector)

// WithRetryConfig는 재시도 설정을 지정합니다
func WithRetryConfig(config RetryConfig) CollectorOption {
	return func(c *Collector) {
		c.retry = config
	}
}

// WithCandleLimit은 앵커 해상도의 과거 캔들 조회 개수를 설정합니다
func WithCandleLimit(limit int) CollectorOption {
	return func(c *Collector) {
		if limit > 0 {
			c.candleLimit = limit
		}
	}
}

// WithFinerCandleLimit은 추적 해상도의 과거 캔들 조회 개수를 설정합니다
func WithFinerCandleLimit(limit int) CollectorOption {
	return func(c *Collector) {
		if limit > 0 {
			c.finerLimit = limit
		}
	}
}

// WithPollLimit은 주기 수집 시 해상도당 조회 개수를 설정합니다
func WithPollLimit(limit int) CollectorOption {
	return func(c *Collector) {
		if limit > 0 {
			c.pollLimit = limit
		}
	}
}

// WithNotifier는 수집 실패 알림을 보낼 채널을 지정합니다
func WithNotifier(notifier notification.Notifier) CollectorOption {
	return func(c *Collector) {
		if notifier != nil {
			c.notifier = notifier
		}
	}
}

// NewCollector는 새로운 데이터 수집기를 생성합니다.
// 마켓과 해상도 구성은 엔진의 것을 그대로 따릅니다.
func NewCollector(source exchange.CandleSource, eng *engine.Engine, opts ...CollectorOption) *Collector {
	c := &Collector{
		source:      source,
		engine:      eng,
		notifier:    notification.Noop{},
		candleLimit: 400,
		finerLimit:  2400,
		pollLimit:   3,
		retry:       DefaultRetryConfig(),
		lastSeen:    make(map[domain.Resolution]time.Time),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Bootstrap은 라이브 모드 시작 전에 앵커 히스토리를 받아 지표를 예열합니다.
// 예열 구간에서는 시그널을 만들지 않으며, 과거 구간의 시그널 복원은 재생
// 모드의 몫입니다.
func (c *Collector) Bootstrap(ctx context.Context) error {
	market := c.engine.Market()
	anchor := c.engine.AnchorResolution()

	var candles domain.CandleList
	err := c.withRetry(ctx, fmt.Sprintf("%s %s 히스토리 조회", market, anchor), func() error {
		now, err := c.source.GetServerTime(ctx)
		if err != nil {
			return fmt.Errorf("서버 시간 조회 실패: %w", err)
		}

		fetched, err := c.source.GetCandles(ctx, market, anchor, c.candleLimit)
		if err != nil {
			return err
		}
		candles = completedOnly(fetched, now)
		return nil
	})
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		return fmt.Errorf("%s %s 히스토리가 비어 있습니다", market, anchor)
	}

	if err := c.engine.SeedAnchorHistory(candles); err != nil {
		return fmt.Errorf("앵커 히스토리 예열 실패: %w", err)
	}

	c.mu.Lock()
	c.lastSeen[anchor] = candles[len(candles)-1].OpenTime
	c.mu.Unlock()

	log.Printf("%s %s 캔들 %d개로 지표 예열 완료 (마지막 %s)",
		market, anchor, len(candles),
		candles[len(candles)-1].OpenTime.Format("2006-01-02 15:04"))
	return nil
}

// CollectHistory는 재생 모드에 쓸 과거 캔들을 해상도별로 수집합니다.
// 앵커 해상도는 candleLimit, 추적 해상도는 finerLimit 깊이로 조회하며
// 진행 중인 캔들은 제외합니다.
func (c *Collector) CollectHistory(ctx context.Context) (map[domain.Resolution]domain.CandleList, error) {
	market := c.engine.Market()

	var now time.Time
	err := c.withRetry(ctx, "서버 시간 조회", func() error {
		t, err := c.source.GetServerTime(ctx)
		if err != nil {
			return err
		}
		now = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	series := make(map[domain.Resolution]domain.CandleList)

	resolutions := append([]domain.Resolution{c.engine.AnchorResolution()}, c.engine.TrackResolutions()...)
	for _, res := range resolutions {
		limit := c.finerLimit
		if res == c.engine.AnchorResolution() {
			limit = c.candleLimit
		}

		var candles domain.CandleList
		err := c.withRetry(ctx, fmt.Sprintf("%s %s 과거 캔들 조회", market, res), func() error {
			fetched, err := c.source.GetCandles(ctx, market, res, limit)
			if err != nil {
				return err
			}
			candles = completedOnly(fetched, now)
			return nil
		})
		if err != nil {
			return nil, err
		}

		log.Printf("%s %s 과거 캔들 %d개 수집 완료", market, res, len(candles))
		series[res] = candles
	}

	return series, nil
}

// Collect는 모든 해상도에 대해 한 번의 수집 사이클을 수행합니다.
// 앵커 해상도를 먼저, 추적 해상도를 굵은 순서로 처리합니다.
func (c *Collector) Collect(ctx context.Context) error {
	resolutions := append([]domain.Resolution{c.engine.AnchorResolution()}, c.engine.TrackResolutions()...)
	for _, res := range resolutions {
		if _, err := c.CollectResolution(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

// CollectResolution은 한 해상도의 최신 완결 캔들을 조회해 엔진에 전달하고,
// 그 결과로 만들어진 시그널 행을 반환합니다.
func (c *Collector) CollectResolution(ctx context.Context, res domain.Resolution) ([]domain.SignalRow, error) {
	market := c.engine.Market()

	var rows []domain.SignalRow
	err := c.withRetry(ctx, fmt.Sprintf("%s %s 캔들 수집", market, res), func() error {
		now, err := c.source.GetServerTime(ctx)
		if err != nil {
			return fmt.Errorf("서버 시간 조회 실패: %w", err)
		}

		candles, err := c.source.GetCandles(ctx, market, res, c.pollLimit)
		if err != nil {
			return err
		}

		rows = c.feed(res, completedOnly(candles, now))
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		switch row.Kind {
		case domain.KindTrade:
			log.Printf("%s %s 체결: %s #%d @ %.2f", market, row.Resolution, row.Side, row.Sequence, row.Price)
		case domain.KindReference, domain.KindExpired, domain.KindBlocked:
			log.Printf("%s %s %s: %s", market, row.Resolution, row.Kind, row.Note)
		}
	}

	return rows, nil
}

// feed는 아직 반영하지 않은 캔들만 골라 엔진에 넣습니다
func (c *Collector) feed(res domain.Resolution, candles domain.CandleList) []domain.SignalRow {
	c.mu.Lock()
	defer c.mu.Unlock()

	last := c.lastSeen[res]
	var rows []domain.SignalRow
	fed := 0
	for _, candle := range candles {
		if !candle.OpenTime.After(last) {
			continue
		}
		rows = append(rows, c.engine.OnCandle(candle)...)
		last = candle.OpenTime
		fed++
	}
	c.lastSeen[res] = last

	if fed > 0 {
		log.Printf("%s %s 신규 캔들 %d개 반영", c.engine.Market(), res, fed)
	}
	return rows
}

// LastSeen은 해당 해상도에서 마지막으로 반영한 캔들의 시작 시각을 반환합니다
func (c *Collector) LastSeen(res domain.Resolution) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.lastSeen[res]
	return t, ok
}

// completedOnly는 조회 시점에 아직 진행 중인 캔들을 걸러냅니다
func completedOnly(candles domain.CandleList, now time.Time) domain.CandleList {
	out := make(domain.CandleList, 0, len(candles))
	for _, c := range candles {
		if c.CloseTime.After(now) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// withRetry는 재시도 로직을 구현한 래퍼 함수입니다
func (c *Collector) withRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	delay := c.retry.BaseDelay

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := fn(); err != nil {
				lastErr = err

				// 재시도 가능한 오류인지 확인
				if !IsRetryableError(err) {
					log.Printf("%s 실패 (재시도 불필요): %v", operation, err)
					return err
				}

				if attempt == c.retry.MaxRetries {
					errMsg := fmt.Errorf("%s 실패 (최대 재시도 횟수 초과): %w", operation, lastErr)
					if notifyErr := c.notifier.SendError(errMsg); notifyErr != nil {
						log.Printf("에러 알림 전송 실패: %v", notifyErr)
					}
					return errMsg
				}

				log.Printf("%s 실패 (attempt %d/%d): %v",
					operation, attempt+1, c.retry.MaxRetries, err)

				// 다음 재시도 전 대기
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
					delay = time.Duration(float64(delay) * c.retry.Factor)
					if delay > c.retry.MaxDelay {
						delay = c.retry.MaxDelay
					}
				}
				continue
			}
			return nil
		}
	}
	return lastErr
}

// IsRetryableError는 재시도할 가치가 있는 오류인지 판단합니다.
// 취소된 컨텍스트와 요청 자체의 문제는 재시도하지 않습니다.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, hint := range []string{
		"connection refused",
		"connection reset",
		"unexpected EOF",
		"EOF",
		"429",
		"502",
		"503",
		"504",
	} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
