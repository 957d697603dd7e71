package domain

import "time"

// IndicatorFrame은 캔들과 해당 시점의 MACD 지표값을 묶은 프레임입니다.
// 워밍업 구간(EMA 초기화 이전)의 프레임은 존재하지 않으며, 프레임 슬라이스는
// 캔들 슬라이스와 인덱스를 맞추되 워밍업 구간을 nil로 둡니다. 0으로 채우면
// 초반에 가짜 크로스가 발생하기 때문에 절대 0으로 채우지 않습니다.
type IndicatorFrame struct {
	Time      time.Time // 캔들 시작 시간
	Close     float64   // 종가
	MACD      float64   // MACD 라인
	Signal    float64   // 시그널 라인
	Histogram float64   // 히스토그램 (MACD - Signal)
}

// IndicatorSnapshot은 시그널 행에 첨부되는 지표값 스냅샷입니다
type IndicatorSnapshot struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Snapshot은 프레임의 지표값 스냅샷을 반환합니다
func (f *IndicatorFrame) Snapshot() *IndicatorSnapshot {
	if f == nil {
		return nil
	}
	return &IndicatorSnapshot{
		MACD:      f.MACD,
		Signal:    f.Signal,
		Histogram: f.Histogram,
	}
}
