package domain

import (
	"fmt"
	"time"
)

// Resolution은 캔들 차트의 타임프레임을 정의합니다
type Resolution string

const (
	Resolution1m  Resolution = "1m"
	Resolution5m  Resolution = "5m"
	Resolution15m Resolution = "15m"
	Resolution30m Resolution = "30m"
	Resolution1h  Resolution = "1h"
	Resolution2h  Resolution = "2h"
	Resolution4h  Resolution = "4h"
	Resolution6h  Resolution = "6h"
	Resolution12h Resolution = "12h"
	Resolution1d  Resolution = "1d"
)

// resolutionMinutes는 타임프레임별 분 단위 길이입니다 (MAX API의 period 값)
var resolutionMinutes = map[Resolution]int{
	Resolution1m:  1,
	Resolution5m:  5,
	Resolution15m: 15,
	Resolution30m: 30,
	Resolution1h:  60,
	Resolution2h:  120,
	Resolution4h:  240,
	Resolution6h:  360,
	Resolution12h: 720,
	Resolution1d:  1440,
}

// Minutes는 타임프레임의 분 단위 길이를 반환합니다
func (r Resolution) Minutes() int {
	return resolutionMinutes[r]
}

// Duration은 타임프레임의 길이를 반환합니다
func (r Resolution) Duration() time.Duration {
	return time.Duration(resolutionMinutes[r]) * time.Minute
}

// IsValid는 지원하는 타임프레임인지 확인합니다
func (r Resolution) IsValid() bool {
	_, ok := resolutionMinutes[r]
	return ok
}

// ParseResolution은 문자열을 Resolution으로 변환합니다
func ParseResolution(s string) (Resolution, error) {
	r := Resolution(s)
	if !r.IsValid() {
		return "", fmt.Errorf("지원하지 않는 타임프레임입니다: %s", s)
	}
	return r, nil
}
