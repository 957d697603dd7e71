package exchange

import (
	"context"
	"time"

	"github.com/assist-by/kestrel/internal/domain"
)

// CandleSource는 거래소에서 시장 데이터를 공급하는 인터페이스입니다.
type CandleSource interface {
	// GetCandles는 마켓의 최근 캔들을 오래된 것부터 limit개 조회합니다.
	// 마지막 캔들은 아직 진행 중일 수 있으며, 완결 여부 판정은 호출자의
	// 몫입니다.
	GetCandles(ctx context.Context, market string, resolution domain.Resolution, limit int) (domain.CandleList, error)

	// GetTicker는 마켓의 현재 시세를 조회합니다
	GetTicker(ctx context.Context, market string) (*Ticker, error)

	// GetServerTime은 거래소 서버 시간을 조회합니다
	GetServerTime(ctx context.Context) (time.Time, error)

	// SyncTime은 거래소 서버와 시간을 동기화합니다
	SyncTime(ctx context.Context) error
}

// Ticker는 마켓의 현재 시세 요약입니다
type Ticker struct {
	Market string    `json:"market"`
	At     time.Time `json:"at"`
	Last   float64   `json:"last"`
	Buy    float64   `json:"buy"`
	Sell   float64   `json:"sell"`
	Volume float64   `json:"volume"`
}
