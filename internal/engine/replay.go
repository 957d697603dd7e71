package engine

import (
	"fmt"
	"sort"

	"github.com/assist-by/kestrel/internal/domain"
)

// Report는 리플레이 실행의 결과물입니다
type Report struct {
	Market     string                  `json:"market"`
	Anchor     domain.Resolution       `json:"anchor_resolution"`
	Rows       []domain.SignalRow      `json:"rows"`
	References []domain.ReferencePoint `json:"references"`
	Stats      domain.Statistics       `json:"stats"`
}

// Replay는 타임프레임별 캔들 묶음을 하나의 시간순 스트림으로 합쳐
// 공급합니다. 캔들은 완결 시각 순서로 처리되며, 같은 시각에 닫히는
// 캔들은 거친 타임프레임이 먼저 옵니다 — 앵커 교차로 만든 기준점이
// 같은 시각에 닫힌 하위 캔들을 바로 탐색할 수 있어야 하기 때문입니다.
// 이 순서는 실시간 수집에서 캔들이 완결되는 순서와 같으므로, 같은
// 입력에 대해 리플레이와 실시간 실행은 같은 행을 만들어냅니다.
func (e *Engine) Replay(series map[domain.Resolution]domain.CandleList) (*Report, error) {
	merged, err := mergeSeries(series)
	if err != nil {
		return nil, err
	}

	for _, c := range merged {
		e.OnCandle(c)
	}
	return e.Report(), nil
}

// Report는 지금까지의 실행 결과를 스냅샷으로 반환합니다
func (e *Engine) Report() *Report {
	return &Report{
		Market:     e.market,
		Anchor:     e.anchorRes,
		Rows:       e.Rows(),
		References: e.References(),
		Stats:      e.Statistics(),
	}
}

// mergeSeries는 타임프레임별 캔들을 검증하고 완결 시각 순서로 합칩니다
func mergeSeries(series map[domain.Resolution]domain.CandleList) (domain.CandleList, error) {
	var merged domain.CandleList
	for res, candles := range series {
		if !res.IsValid() {
			return nil, fmt.Errorf("유효하지 않은 타임프레임: %s", res)
		}
		if err := candles.Validate(); err != nil {
			return nil, fmt.Errorf("%s 캔들이 유효하지 않습니다: %w", res, err)
		}
		for _, c := range candles {
			if c.Resolution == "" {
				c.Resolution = res
			} else if c.Resolution != res {
				return nil, fmt.Errorf("%s 묶음에 %s 캔들이 섞여 있습니다", res, c.Resolution)
			}
			if c.CloseTime.IsZero() {
				c.CloseTime = c.OpenTime.Add(res.Duration())
			}
			merged = append(merged, c)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CloseTime.Equal(merged[j].CloseTime) {
			return merged[i].CloseTime.Before(merged[j].CloseTime)
		}
		return merged[i].Resolution.Minutes() > merged[j].Resolution.Minutes()
	})
	return merged, nil
}
