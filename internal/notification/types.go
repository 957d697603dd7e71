package notification

import "github.com/assist-by/kestrel/internal/domain"

const (
	ColorSuccess = 0x00FF00 // 녹색
	ColorError   = 0xFF0000 // 빨간색
	ColorInfo    = 0x0000FF // 파란색
	ColorWarning = 0xFFA500 // 주황색
)

// Notifier는 알림 전송 인터페이스를 정의합니다
type Notifier interface {
	// SendReference는 새 기준점 생성 알림을 전송합니다
	SendReference(market string, ref domain.ReferencePoint) error

	// SendTrade는 수락된 체결 알림을 전송합니다
	SendTrade(market string, trade domain.Trade) error

	// SendError는 에러 알림을 전송합니다
	SendError(err error) error

	// SendInfo는 일반 정보 알림을 전송합니다
	SendInfo(message string) error
}

// GetColorForDirection은 기준점 방향에 따른 색상을 반환합니다
func GetColorForDirection(direction domain.Direction) int {
	switch direction {
	case domain.DirectionOpen:
		return ColorSuccess
	case domain.DirectionClose:
		return ColorError
	default:
		return ColorInfo
	}
}

// Noop은 아무것도 전송하지 않는 Notifier입니다.
// 웹훅이 설정되지 않은 환경에서 사용합니다.
type Noop struct{}

func (Noop) SendReference(string, domain.ReferencePoint) error { return nil }
func (Noop) SendTrade(string, domain.Trade) error              { return nil }
func (Noop) SendError(error) error                             { return nil }
func (Noop) SendInfo(string) error                             { return nil }
