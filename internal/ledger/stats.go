package ledger

import (
	"time"

	"github.com/assist-by/kestrel/internal/domain"
)

// Statistics는 현재까지의 체결 이력으로 통계를 계산합니다.
// 수익 관련 항목은 완결된 매수-매도 페어만으로 계산하며, 보유 중인
// 매수는 집계에 포함하지 않습니다.
func (l *Ledger) Statistics() domain.Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := domain.Statistics{
		TotalTrades:     len(l.trades),
		CurrentPosition: l.position,
		NextSequence:    l.nextSeq,
		TradePairs:      append([]domain.TradePair(nil), l.pairs...),
	}

	for _, t := range l.trades {
		switch t.Side {
		case domain.SideBuy:
			stats.BuyCount++
		case domain.SideSell:
			stats.SellCount++
		}
	}

	if len(l.pairs) == 0 {
		return stats
	}

	var totalHolding time.Duration
	var winStreak, lossStreak int
	stats.BestProfit = l.pairs[0].Profit
	stats.WorstProfit = l.pairs[0].Profit

	for _, p := range l.pairs {
		stats.TotalProfit += p.Profit
		totalHolding += p.HoldingDuration()

		if p.Profit > 0 {
			stats.WinCount++
			winStreak++
			lossStreak = 0
			if winStreak > stats.MaxConsecutiveWins {
				stats.MaxConsecutiveWins = winStreak
			}
		} else {
			lossStreak++
			winStreak = 0
			if lossStreak > stats.MaxConsecutiveLoss {
				stats.MaxConsecutiveLoss = lossStreak
			}
		}

		if p.Profit > stats.BestProfit {
			stats.BestProfit = p.Profit
		}
		if p.Profit < stats.WorstProfit {
			stats.WorstProfit = p.Profit
		}
	}

	stats.AvgProfit = stats.TotalProfit / float64(len(l.pairs))
	stats.AvgHoldingDuration = totalHolding / time.Duration(len(l.pairs))
	stats.WinRate = float64(stats.WinCount) / float64(len(l.pairs)) * 100
	return stats
}
