package domain

import "time"

// SignalKind는 시그널 행의 종류를 정의합니다
type SignalKind string

const (
	// KindCrossover는 앵커 타임프레임에서 크로스오버가 감지되어 기준점이
	// 만들어졌음을 의미합니다
	KindCrossover SignalKind = "crossover"
	// KindBlocked는 원장 상태와 맞지 않아 무시된 크로스오버 또는 거절된
	// 체결 시도를 의미합니다
	KindBlocked SignalKind = "blocked"
	// KindReference는 추적기가 기준점을 받아 탐색을 시작했음을 의미합니다
	KindReference SignalKind = "reference"
	// KindSearchConfirmed는 탐색 중 목표 가격과 일치하는 캔들을 찾아
	// 추적 단계로 전환했음을 의미합니다
	KindSearchConfirmed SignalKind = "search_confirmed"
	// KindTracking은 추적 중인 캔들 하나를 의미합니다
	KindTracking SignalKind = "tracking"
	// KindTrade는 원장에 수락된 체결을 의미합니다
	KindTrade SignalKind = "trade"
	// KindExpired는 확정 제한시간 안에 체결에 이르지 못해 버려진 기준점을
	// 의미합니다
	KindExpired SignalKind = "expired"
)

// SignalRow는 타임프레임별로 기록되는 시그널 행입니다. 앵커 행에는 지표
// 스냅샷이 붙고, 추적 행에는 극값이 기록됩니다.
type SignalRow struct {
	Time       time.Time          `json:"time"`
	Resolution Resolution         `json:"resolution"`
	Kind       SignalKind         `json:"kind"`
	Direction  Direction          `json:"direction,omitempty"`
	Side       TradeSide          `json:"side,omitempty"`
	Price      float64            `json:"price"`
	Sequence   int                `json:"sequence,omitempty"`
	Extremum   float64            `json:"extremum,omitempty"`
	Indicators *IndicatorSnapshot `json:"indicators,omitempty"`
	Note       string             `json:"note,omitempty"`
}
