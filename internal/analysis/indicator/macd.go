package indicator

import (
	"fmt"

	"github.com/assist-by/kestrel/internal/domain"
)

// MACDOption은 MACD 계산에 필요한 옵션을 정의합니다
type MACDOption struct {
	FastPeriod   int // 단기 EMA 기간
	SlowPeriod   int // 장기 EMA 기간
	SignalPeriod int // 시그널 라인 기간
}

// DefaultMACDOption은 기본 MACD 옵션(12/26/9)을 반환합니다
func DefaultMACDOption() MACDOption {
	return MACDOption{
		FastPeriod:   12,
		SlowPeriod:   26,
		SignalPeriod: 9,
	}
}

// WarmupLength는 첫 프레임이 정의되는 인덱스를 반환합니다.
// 장기 EMA가 SlowPeriod-1에서, 시그널 EMA가 거기서 다시 SignalPeriod-1
// 뒤에서 초기화되므로 그 이전 구간의 프레임은 존재하지 않습니다.
func (opt MACDOption) WarmupLength() int {
	return opt.SlowPeriod + opt.SignalPeriod - 2
}

// ValidateMACDOption은 MACD 옵션을 검증합니다
func ValidateMACDOption(opt MACDOption) error {
	if opt.FastPeriod <= 0 {
		return &ValidationError{
			Field: "FastPeriod",
			Err:   fmt.Errorf("단기 기간은 0보다 커야 합니다: %d", opt.FastPeriod),
		}
	}
	if opt.SlowPeriod <= opt.FastPeriod {
		return &ValidationError{
			Field: "SlowPeriod",
			Err:   fmt.Errorf("장기 기간은 단기 기간보다 커야 합니다: %d <= %d", opt.SlowPeriod, opt.FastPeriod),
		}
	}
	if opt.SignalPeriod <= 0 {
		return &ValidationError{
			Field: "SignalPeriod",
			Err:   fmt.Errorf("시그널 기간은 0보다 커야 합니다: %d", opt.SignalPeriod),
		}
	}
	return nil
}

// MACDFrames는 캔들 목록으로부터 MACD 지표 프레임을 계산합니다.
// 반환 슬라이스는 캔들 목록과 인덱스가 같으며, 워밍업 구간은 nil입니다.
// 캔들이 워밍업을 채우지 못하면 전부 nil인 슬라이스를 반환합니다 — 이력
// 부족은 에러가 아니라 "지표 없음"으로 전파됩니다.
func MACDFrames(candles domain.CandleList, opt MACDOption) ([]*domain.IndicatorFrame, error) {
	if err := ValidateMACDOption(opt); err != nil {
		return nil, err
	}

	frames := make([]*domain.IndicatorFrame, len(candles))

	// 워밍업을 채우지 못하면 정의된 프레임이 없습니다
	if len(candles) <= opt.WarmupLength() {
		return frames, nil
	}

	closes := candles.Closes()

	// 단기/장기 EMA 계산
	fastEMA, err := EMA(closes, EMAOption{Period: opt.FastPeriod})
	if err != nil {
		return nil, fmt.Errorf("단기 EMA 계산 실패: %w", err)
	}
	slowEMA, err := EMA(closes, EMAOption{Period: opt.SlowPeriod})
	if err != nil {
		return nil, fmt.Errorf("장기 EMA 계산 실패: %w", err)
	}

	// MACD 라인 계산 (단기 EMA - 장기 EMA)
	macdStart := opt.SlowPeriod - 1
	macdLine := make([]float64, len(closes)-macdStart)
	for i := range macdLine {
		macdLine[i] = fastEMA[i+macdStart] - slowEMA[i+macdStart]
	}

	// 시그널 라인 계산 (MACD의 EMA)
	signalLine, err := EMA(macdLine, EMAOption{Period: opt.SignalPeriod})
	if err != nil {
		return nil, fmt.Errorf("시그널 라인 계산 실패: %w", err)
	}

	// 워밍업 이후 구간만 프레임으로 채웁니다
	for j := opt.SignalPeriod - 1; j < len(macdLine); j++ {
		i := j + macdStart
		frames[i] = &domain.IndicatorFrame{
			Time:      candles[i].OpenTime,
			Close:     candles[i].Close,
			MACD:      macdLine[j],
			Signal:    signalLine[j],
			Histogram: macdLine[j] - signalLine[j],
		}
	}

	return frames, nil
}
