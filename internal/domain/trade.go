package domain

import "time"

// Trade는 추적기가 발화한 체결 이벤트입니다. 원장에 수락된 것만 이력에
// 추가되며, 이력은 append-only입니다.
type Trade struct {
	Sequence   int        `json:"sequence"`   // 기준점에서 물려받은 시퀀스 번호
	Resolution Resolution `json:"resolution"` // 체결을 발화한 타임프레임
	Side       TradeSide  `json:"side"`       // BUY 또는 SELL
	Time       time.Time  `json:"time"`       // 체결 시간 (캔들 시간)
	Price      float64    `json:"price"`      // 체결 가격 (캔들 종가)
}

// TradePair는 같은 시퀀스 번호의 매수와 매도가 짝을 이룬 한 번의 왕복
// 거래입니다. 매도가 수락되는 순간 완성됩니다.
type TradePair struct {
	Sequence  int       `json:"sequence"`
	BuyTime   time.Time `json:"buy_time"`
	BuyPrice  float64   `json:"buy_price"`
	SellTime  time.Time `json:"sell_time"`
	SellPrice float64   `json:"sell_price"`
	Profit    float64   `json:"profit"` // 매도가 - 매수가
}

// HoldingDuration은 보유 시간을 반환합니다
func (p TradePair) HoldingDuration() time.Duration {
	return p.SellTime.Sub(p.BuyTime)
}

// Statistics는 원장에서 파생되는 집계 통계입니다
type Statistics struct {
	TotalTrades        int           `json:"total_trades"`         // 수락된 체결 수
	BuyCount           int           `json:"buy_count"`            // 매수 횟수
	SellCount          int           `json:"sell_count"`           // 매도 횟수
	TradePairs         []TradePair   `json:"trade_pairs"`          // 완성된 거래 페어
	CurrentPosition    Position      `json:"current_position"`     // 현재 포지션
	NextSequence       int           `json:"next_sequence"`        // 다음에 할당될 시퀀스 번호
	TotalProfit        float64       `json:"total_profit"`         // 총 수익 (가격 단위)
	AvgProfit          float64       `json:"avg_profit"`           // 페어당 평균 수익
	AvgHoldingDuration time.Duration `json:"avg_holding_duration"` // 평균 보유 시간
	WinCount           int           `json:"win_count"`            // 수익 페어 수
	WinRate            float64       `json:"win_rate"`             // 승률 (%)
	MaxConsecutiveWins int           `json:"max_consecutive_wins"` // 최대 연승
	MaxConsecutiveLoss int           `json:"max_consecutive_loss"` // 최대 연패
	BestProfit         float64       `json:"best_profit"`          // 최고 수익 페어
	WorstProfit        float64       `json:"worst_profit"`         // 최저 수익 페어
}
