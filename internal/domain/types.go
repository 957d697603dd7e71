package domain

// Direction은 기준점의 방향을 정의합니다.
// OPEN은 골든크로스에서 만들어진 매수 기준점, CLOSE는 데드크로스에서
// 만들어진 매도 기준점을 의미합니다.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionOpen  Direction = "OPEN"
	DirectionClose Direction = "CLOSE"
)

// TradeSide는 체결 방향을 정의합니다
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// Position은 포지션 상태를 정의합니다
type Position string

const (
	PositionFlat Position = "FLAT"
	PositionLong Position = "LONG"
)

// Side는 방향에 대응하는 체결 방향을 반환합니다
func (d Direction) Side() TradeSide {
	if d == DirectionOpen {
		return SideBuy
	}
	return SideSell
}
