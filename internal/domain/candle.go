package domain

import (
	"fmt"
	"time"
)

// Candle은 캔들 데이터를 표현합니다
type Candle struct {
	OpenTime   time.Time  // 캔들 시작 시간
	CloseTime  time.Time  // 캔들 종료 시간
	Open       float64    // 시가
	High       float64    // 고가
	Low        float64    // 저가
	Close      float64    // 종가
	Volume     float64    // 거래량
	Market     string     // 마켓 (예: btctwd)
	Resolution Resolution // 타임프레임 (예: 15m, 1h)
}

// CandleList는 캔들 데이터 목록입니다
type CandleList []Candle

// GetLastCandle은 가장 최근 캔들을 반환합니다
func (cl CandleList) GetLastCandle() (Candle, bool) {
	if len(cl) == 0 {
		return Candle{}, false
	}
	return cl[len(cl)-1], true
}

// Closes는 종가 목록을 반환합니다
func (cl CandleList) Closes() []float64 {
	closes := make([]float64, len(cl))
	for i, c := range cl {
		closes[i] = c.Close
	}
	return closes
}

// After는 기준 시간 이후에 시작된 캔들만 반환합니다
func (cl CandleList) After(t time.Time) CandleList {
	var result CandleList
	for _, c := range cl {
		if c.OpenTime.After(t) {
			result = append(result, c)
		}
	}
	return result
}

// Validate는 캔들 목록이 시간순으로 정렬되어 있는지 확인합니다.
// 타임프레임별 처리 순서가 흐트러지면 극값 추적과 기준점 탐색이 깨지기
// 때문에 엔진에 투입하기 전에 반드시 검증해야 합니다.
func (cl CandleList) Validate() error {
	for i := 1; i < len(cl); i++ {
		if cl[i].OpenTime.Before(cl[i-1].OpenTime) {
			return fmt.Errorf("캔들 데이터가 시간순으로 정렬되어 있지 않습니다: %s < %s",
				cl[i].OpenTime.Format(time.RFC3339), cl[i-1].OpenTime.Format(time.RFC3339))
		}
	}
	return nil
}
