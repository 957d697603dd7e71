package indicator

import "fmt"

// EMAOption은 EMA 계산에 필요한 옵션을 정의합니다
type EMAOption struct {
	Period int // 기간
}

// ValidateEMAOption은 EMA 옵션을 검증합니다
func ValidateEMAOption(opt EMAOption) error {
	if opt.Period < 1 {
		return &ValidationError{
			Field: "Period",
			Err:   fmt.Errorf("기간은 1 이상이어야 합니다: %d", opt.Period),
		}
	}
	return nil
}

// EMA는 지수이동평균을 계산합니다.
// 반환 슬라이스는 입력과 인덱스가 같고, 첫 EMA는 처음 Period개 값의 단순
// 평균(SMA)으로 초기화합니다. Period-1 이전 인덱스는 정의되지 않은
// 구간이므로 호출자는 절대 읽어서는 안 됩니다.
func EMA(values []float64, opt EMAOption) ([]float64, error) {
	if err := ValidateEMAOption(opt); err != nil {
		return nil, err
	}

	if len(values) < opt.Period {
		return nil, &ValidationError{
			Field: "values",
			Err:   fmt.Errorf("데이터가 부족합니다. 필요: %d, 현재: %d", opt.Period, len(values)),
		}
	}

	// EMA 계산을 위한 승수 계산
	multiplier := 2.0 / float64(opt.Period+1)

	results := make([]float64, len(values))

	// 초기 SMA 계산
	var sma float64
	for i := 0; i < opt.Period; i++ {
		sma += values[i]
	}
	sma /= float64(opt.Period)

	// 첫 번째 EMA는 SMA 값으로 설정
	results[opt.Period-1] = sma

	// EMA = 이전 EMA + (현재값 - 이전 EMA) × 승수
	for i := opt.Period; i < len(values); i++ {
		results[i] = (values[i]-results[i-1])*multiplier + results[i-1]
	}

	return results, nil
}
