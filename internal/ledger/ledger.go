package ledger

import (
	"sync"

	"github.com/assist-by/kestrel/internal/domain"
)

// Ledger는 단일 포지션 원장입니다. 포지션은 무포지션(FLAT)과 보유(LONG)
// 두 가지뿐이며, 매수는 무포지션일 때만, 매도는 보유 중일 때만 수락됩니다.
// 여러 타임프레임의 추적기가 동시에 체결을 제안하더라도 모든 상태 변경은
// Apply 하나를 거치므로 포지션이 겹치거나 공매도가 생길 수 없습니다.
type Ledger struct {
	mu sync.Mutex

	position domain.Position
	nextSeq  int
	pending  *domain.TradePair // 보유 중인 매수의 미완결 페어
	trades   []domain.Trade
	pairs    []domain.TradePair
}

// New는 무포지션 상태의 새 원장을 생성합니다
func New() *Ledger {
	return &Ledger{
		position: domain.PositionFlat,
		nextSeq:  1,
	}
}

// Position은 현재 포지션을 반환합니다
func (l *Ledger) Position() domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

// AllocateSequence는 새 기준점에 부여할 시퀀스 번호를 발급합니다.
// 번호는 1부터 단조 증가하며, 기준점이 체결 없이 만료되어도 재사용하지
// 않습니다.
func (l *Ledger) AllocateSequence() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	seq := l.nextSeq
	l.nextSeq++
	return seq
}

// OpenSequence는 보유 중인 매수의 시퀀스 번호를 반환합니다.
// 무포지션이면 두 번째 반환값이 false입니다.
func (l *Ledger) OpenSequence() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return 0, false
	}
	return l.pending.Sequence, true
}

// Apply는 체결 제안을 원장에 반영합니다. 포지션 상태와 맞지 않는 제안은
// LedgerError로 거절되며 원장은 변하지 않습니다.
func (l *Ledger) Apply(trade domain.Trade) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch trade.Side {
	case domain.SideBuy:
		if l.position != domain.PositionFlat {
			return &LedgerError{Op: "매수", Sequence: trade.Sequence, Err: ErrNotFlat}
		}
		l.position = domain.PositionLong
		l.pending = &domain.TradePair{
			Sequence: trade.Sequence,
			BuyTime:  trade.Time,
			BuyPrice: trade.Price,
		}

	case domain.SideSell:
		if l.position != domain.PositionLong {
			return &LedgerError{Op: "매도", Sequence: trade.Sequence, Err: ErrNotLong}
		}
		pair := *l.pending
		pair.SellTime = trade.Time
		pair.SellPrice = trade.Price
		pair.Profit = pair.SellPrice - pair.BuyPrice
		l.pairs = append(l.pairs, pair)
		l.position = domain.PositionFlat
		l.pending = nil

	default:
		return &LedgerError{Op: string(trade.Side), Sequence: trade.Sequence, Err: ErrUnknownSide}
	}

	l.trades = append(l.trades, trade)
	return nil
}

// Trades는 수락된 체결 이력의 사본을 반환합니다
func (l *Ledger) Trades() []domain.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Trade(nil), l.trades...)
}

// Pairs는 완결된 매수-매도 페어의 사본을 반환합니다
func (l *Ledger) Pairs() []domain.TradePair {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.TradePair(nil), l.pairs...)
}
