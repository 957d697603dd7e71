package signal

import (
	"github.com/assist-by/kestrel/internal/domain"
)

// Detector는 앵커 타임프레임의 MACD 크로스오버를 감지합니다.
// 프레임 두 개만 보는 순수 판정이므로 내부 상태를 갖지 않습니다.
type Detector struct{}

// NewDetector는 새로운 크로스오버 감지기를 생성합니다
func NewDetector() *Detector {
	return &Detector{}
}

// Detect는 연속한 두 프레임 사이의 크로스오버를 감지합니다.
// 골든크로스(OPEN)는 두 라인이 모두 0 아래에서, 데드크로스(CLOSE)는 두
// 라인이 모두 0 위에서 일어난 경우만 인정합니다. 반대 추세 깊숙한 곳에서
// 생기는 약한 교차를 걸러내기 위한 조건입니다.
// 워밍업 구간(nil 프레임)은 크로스 없음으로 처리합니다.
func (d *Detector) Detect(prev, curr *domain.IndicatorFrame) domain.Direction {
	if prev == nil || curr == nil {
		return domain.DirectionNone
	}

	// 골든크로스: 히스토그램이 음수였다가 MACD가 시그널을 상향 돌파,
	// 돌파 시점의 두 라인은 모두 음수
	if prev.Histogram < 0 &&
		prev.MACD <= prev.Signal &&
		curr.MACD > curr.Signal &&
		curr.MACD < 0 &&
		curr.Signal < 0 {
		return domain.DirectionOpen
	}

	// 데드크로스: 히스토그램이 양수였다가 시그널이 MACD를 역전,
	// 역전 시점의 두 라인은 모두 양수
	if prev.Histogram > 0 &&
		prev.MACD >= prev.Signal &&
		curr.Signal > curr.MACD &&
		curr.MACD > 0 &&
		curr.Signal > 0 {
		return domain.DirectionClose
	}

	return domain.DirectionNone
}
