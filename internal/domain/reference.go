package domain

import (
	"fmt"
	"time"
)

// ReferencePoint는 앵커 타임프레임의 크로스오버에서 만들어지는 가격 기준점입니다.
// 생성 이후 변경되지 않으며, 모든 추적기가 같은 인스턴스를 읽기 전용으로
// 공유합니다.
type ReferencePoint struct {
	Sequence    int       `json:"sequence"`     // 거래 페어 시퀀스 번호
	Direction   Direction `json:"direction"`    // OPEN(매수) 또는 CLOSE(매도)
	AnchorTime  time.Time `json:"anchor_time"`  // 크로스오버가 발생한 앵커 캔들 시간
	TargetPrice float64   `json:"target_price"` // 앵커 캔들 종가 (탐색 목표 가격)
}

// String은 로그 출력용 문자열 표현을 반환합니다
func (r *ReferencePoint) String() string {
	return fmt.Sprintf("기준점 #%d [%s] %s @ %.4f",
		r.Sequence, r.Direction, r.AnchorTime.Format("2006-01-02 15:04"), r.TargetPrice)
}
