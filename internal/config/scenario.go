package config

import (
	"fmt"
	"os"
	"time"

	"github.com/assist-by/kestrel/internal/domain"
	"gopkg.in/yaml.v3"
)

// Series는 타임프레임 하나의 종가열입니다. 캔들은 start부터 타임프레임
// 간격으로 배치되며 시가/고가/저가는 종가와 같게 만들어집니다.
type Series struct {
	Resolution domain.Resolution `yaml:"resolution"`
	Start      time.Time         `yaml:"start"`
	Closes     []float64         `yaml:"closes"`
}

// Scenario는 재생 모드에 공급할 합성 캔들 시나리오입니다. 거래소 없이
// 종가열만으로 탐지 경로 전체를 재현할 때 사용합니다.
type Scenario struct {
	Market string   `yaml:"market"`
	Series []Series `yaml:"series"`
}

// LoadScenario는 YAML 파일에서 시나리오를 로드합니다.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("시나리오 파일 읽기 실패 (%s): %w", path, err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("시나리오 YAML 파싱 실패: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("시나리오 검증 실패: %w", err)
	}

	return &sc, nil
}

// Validate는 시나리오가 유효한지 확인합니다.
func (s *Scenario) Validate() error {
	if s.Market == "" {
		return fmt.Errorf("market이 비어 있습니다")
	}
	if len(s.Series) == 0 {
		return fmt.Errorf("series가 비어 있습니다")
	}

	seen := make(map[domain.Resolution]bool)
	for i, series := range s.Series {
		if !series.Resolution.IsValid() {
			return fmt.Errorf("series[%d]: 지원하지 않는 타임프레임입니다: %s", i, series.Resolution)
		}
		if seen[series.Resolution] {
			return fmt.Errorf("series[%d]: 중복된 타임프레임입니다: %s", i, series.Resolution)
		}
		seen[series.Resolution] = true
		if series.Start.IsZero() {
			return fmt.Errorf("series[%d]: start가 비어 있습니다", i)
		}
		if len(series.Closes) == 0 {
			return fmt.Errorf("series[%d]: closes가 비어 있습니다", i)
		}
	}
	return nil
}

// Candles는 시나리오를 타임프레임별 캔들 목록으로 변환합니다.
func (s *Scenario) Candles() map[domain.Resolution]domain.CandleList {
	byRes := make(map[domain.Resolution]domain.CandleList, len(s.Series))
	for _, series := range s.Series {
		dur := series.Resolution.Duration()
		candles := make(domain.CandleList, 0, len(series.Closes))
		for i, close := range series.Closes {
			open := series.Start.Add(time.Duration(i) * dur)
			candles = append(candles, domain.Candle{
				OpenTime:   open,
				CloseTime:  open.Add(dur),
				Open:       close,
				High:       close,
				Low:        close,
				Close:      close,
				Volume:     1,
				Market:     s.Market,
				Resolution: series.Resolution,
			})
		}
		byRes[series.Resolution] = candles
	}
	return byRes
}
