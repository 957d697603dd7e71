package tracker

import (
	"testing"
	"time"

	"github.com/assist-by/kestrel/internal/domain"
)

func testConfig() Config {
	return Config{
		PriceEpsilon:        0.1,
		ConfirmationTimeout: 2 * time.Hour,
	}
}

// candleAt은 지정 시각에 종가 하나로 이루어진 테스트 캔들을 생성합니다
func candleAt(res domain.Resolution, at time.Time, close float64) domain.Candle {
	return domain.Candle{
		OpenTime:   at,
		CloseTime:  at.Add(res.Duration()),
		Open:       close,
		High:       close,
		Low:        close,
		Close:      close,
		Volume:     1,
		Market:     "btctwd",
		Resolution: res,
	}
}

func refPoint(seq int, dir domain.Direction, anchor time.Time, target float64) *domain.ReferencePoint {
	return &domain.ReferencePoint{
		Sequence:    seq,
		Direction:   dir,
		AnchorTime:  anchor,
		TargetPrice: target,
	}
}

func TestTracker_IdleIgnoresCandles(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr := New(domain.Resolution30m, testConfig())

	res := tr.OnCandle(candleAt(domain.Resolution30m, base, 100))
	if len(res.Rows) != 0 || res.Trade != nil {
		t.Errorf("대기 상태에서는 캔들을 무시해야 합니다: rows=%d, trade=%v", len(res.Rows), res.Trade)
	}
	if tr.Phase() != PhaseIdle {
		t.Errorf("단계가 IDLE이어야 합니다: %s", tr.Phase())
	}
}

func TestTracker_AdoptStartsSearching(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr := New(domain.Resolution30m, testConfig())

	rows := tr.Adopt(refPoint(1, domain.DirectionOpen, base, 100))
	if len(rows) != 1 {
		t.Fatalf("기준점 채택 시 행이 1개여야 합니다: %d", len(rows))
	}
	if rows[0].Kind != domain.KindReference || rows[0].Sequence != 1 {
		t.Errorf("기준점 행이 잘못되었습니다: %+v", rows[0])
	}
	if tr.Phase() != PhaseSearching {
		t.Errorf("채택 후 단계가 SEARCHING이어야 합니다: %s", tr.Phase())
	}

	st := tr.Status()
	if st.Sequence != 1 || st.Direction != domain.DirectionOpen {
		t.Errorf("상태 스냅샷이 잘못되었습니다: %+v", st)
	}
	if !st.Deadline.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("제한시간이 앵커+2h여야 합니다: %s", st.Deadline)
	}
}

func TestTracker_SearchSkipsCandlesAtOrBeforeAnchor(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr := New(domain.Resolution30m, testConfig())
	tr.Adopt(refPoint(1, domain.DirectionOpen, base, 100))

	// 앵커 이전 캔들과 앵커 시점 캔들은 목표 가격이 일치해도 무시합니다
	for _, at := range []time.Time{base.Add(-30 * time.Minute), base} {
		res := tr.OnCandle(candleAt(domain.Resolution30m, at, 100))
		if len(res.Rows) != 0 {
			t.Errorf("%s 캔들은 건너뛰어야 합니다: %+v", at, res.Rows)
		}
		if tr.Phase() != PhaseSearching {
			t.Errorf("건너뛴 뒤에도 SEARCHING이어야 합니다: %s", tr.Phase())
		}
	}

	// 앵커 이후 캔들은 일치하면 추적으로 넘어갑니다
	res := tr.OnCandle(candleAt(domain.Resolution30m, base.Add(30*time.Minute), 100))
	if len(res.Rows) != 1 || res.Rows[0].Kind != domain.KindSearchConfirmed {
		t.Fatalf("탐색 확인 행이 나와야 합니다: %+v", res.Rows)
	}
	if tr.Phase() != PhaseTracking {
		t.Errorf("일치 후 단계가 TRACKING이어야 합니다: %s", tr.Phase())
	}
}

func TestTracker_SearchEpsilonBoundary(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	cfg := Config{PriceEpsilon: 0.25, ConfirmationTimeout: 2 * time.Hour}

	tests := []struct {
		name    string
		close   float64
		matched bool
	}{
		{"오차와 정확히 같으면 불일치", 100.25, false},
		{"오차 안이면 일치", 100.125, true},
		{"오차 밖이면 불일치", 100.5, false},
		{"정확히 일치", 100.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(domain.Resolution30m, cfg)
			tr.Adopt(refPoint(1, domain.DirectionOpen, base, 100))

			res := tr.OnCandle(candleAt(domain.Resolution30m, base.Add(30*time.Minute), tt.close))
			got := len(res.Rows) == 1 && res.Rows[0].Kind == domain.KindSearchConfirmed
			if got != tt.matched {
				t.Errorf("종가 %.3f: 일치 여부 = %v, 기대값 = %v", tt.close, got, tt.matched)
			}
		})
	}
}

// 매수 시나리오: 목표 가격 확인 후 저점을 97까지 낮추다가 98로 반등하면 발화합니다
func TestTracker_OpenTriggerAfterRebound(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr := New(domain.Resolution15m, testConfig())
	tr.Adopt(refPoint(3, domain.DirectionOpen, base, 100))

	// 탐색 일치 — 극값은 종가가 아니라 목표 가격으로 초기화됩니다
	res := tr.OnCandle(candleAt(domain.Resolution15m, base.Add(15*time.Minute), 100.05))
	if len(res.Rows) != 1 || res.Rows[0].Kind != domain.KindSearchConfirmed {
		t.Fatalf("탐색 확인 행이 나와야 합니다: %+v", res.Rows)
	}
	if res.Rows[0].Extremum != 100 {
		t.Errorf("극값은 목표 가격으로 초기화되어야 합니다: %.4f", res.Rows[0].Extremum)
	}

	// 저점 갱신 구간: 99 → 98 → 97
	wantExtremum := []float64{99, 98, 97}
	for i, close := range []float64{99, 98, 97} {
		at := base.Add(time.Duration(30+15*i) * time.Minute)
		res = tr.OnCandle(candleAt(domain.Resolution15m, at, close))
		if res.Trade != nil {
			t.Fatalf("저점 갱신 중에는 발화하면 안 됩니다: %+v", res.Trade)
		}
		if len(res.Rows) != 1 || res.Rows[0].Kind != domain.KindTracking {
			t.Fatalf("추적 행이 나와야 합니다: %+v", res.Rows)
		}
		if res.Rows[0].Extremum != wantExtremum[i] {
			t.Errorf("극값 = %.4f, 기대값 = %.4f", res.Rows[0].Extremum, wantExtremum[i])
		}
	}

	// 반등 — 매수 발화
	res = tr.OnCandle(candleAt(domain.Resolution15m, base.Add(75*time.Minute), 98))
	if res.Trade == nil {
		t.Fatal("반등 시 매수가 발화되어야 합니다")
	}
	if res.Trade.Side != domain.SideBuy || res.Trade.Price != 98 || res.Trade.Sequence != 3 {
		t.Errorf("체결 제안이 잘못되었습니다: %+v", res.Trade)
	}
	if res.Trade.Resolution != domain.Resolution15m {
		t.Errorf("체결 타임프레임 = %s, 기대값 = %s", res.Trade.Resolution, domain.Resolution15m)
	}
}

// 매도 시나리오: 고점을 203까지 올리다가 202로 내려오면 발화합니다
func TestTracker_CloseTriggerAfterPullback(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr := New(domain.Resolution15m, testConfig())
	tr.Adopt(refPoint(5, domain.DirectionClose, base, 200))

	tr.OnCandle(candleAt(domain.Resolution15m, base.Add(15*time.Minute), 200))

	for i, close := range []float64{201, 202, 203} {
		at := base.Add(time.Duration(30+15*i) * time.Minute)
		res := tr.OnCandle(candleAt(domain.Resolution15m, at, close))
		if res.Trade != nil {
			t.Fatalf("고점 갱신 중에는 발화하면 안 됩니다: %+v", res.Trade)
		}
		if res.Rows[0].Extremum != close {
			t.Errorf("극값 = %.4f, 기대값 = %.4f", res.Rows[0].Extremum, close)
		}
	}

	res := tr.OnCandle(candleAt(domain.Resolution15m, base.Add(75*time.Minute), 202))
	if res.Trade == nil {
		t.Fatal("되돌림 시 매도가 발화되어야 합니다")
	}
	if res.Trade.Side != domain.SideSell || res.Trade.Price != 202 || res.Trade.Sequence != 5 {
		t.Errorf("체결 제안이 잘못되었습니다: %+v", res.Trade)
	}
}

func TestTracker_EqualCloseKeepsTracking(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr := New(domain.Resolution15m, testConfig())
	tr.Adopt(refPoint(1, domain.DirectionOpen, base, 100))
	tr.OnCandle(candleAt(domain.Resolution15m, base.Add(15*time.Minute), 100))

	// 종가가 극값과 정확히 같으면 갱신도 발화도 없습니다
	res := tr.OnCandle(candleAt(domain.Resolution15m, base.Add(30*time.Minute), 100))
	if res.Trade != nil {
		t.Errorf("같은 종가에서 발화하면 안 됩니다: %+v", res.Trade)
	}
	if len(res.Rows) != 1 || res.Rows[0].Extremum != 100 {
		t.Errorf("극값이 유지되어야 합니다: %+v", res.Rows)
	}
	if tr.Phase() != PhaseTracking {
		t.Errorf("단계가 TRACKING으로 유지되어야 합니다: %s", tr.Phase())
	}
}

// 탐색 일치 캔들 자체는 발화 판정을 하지 않습니다. 종가가 목표보다 높아도
// 추적은 다음 캔들부터 시작됩니다.
func TestTracker_MatchCandleDoesNotTrigger(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr := New(domain.Resolution15m, testConfig())
	tr.Adopt(refPoint(1, domain.DirectionOpen, base, 100))

	res := tr.OnCandle(candleAt(domain.Resolution15m, base.Add(15*time.Minute), 100.05))
	if res.Trade != nil {
		t.Fatalf("일치 캔들에서 발화하면 안 됩니다: %+v", res.Trade)
	}

	// 다음 캔들이 극값(=목표 가격)보다 높으면 바로 발화합니다
	res = tr.OnCandle(candleAt(domain.Resolution15m, base.Add(30*time.Minute), 100.5))
	if res.Trade == nil || res.Trade.Price != 100.5 {
		t.Fatalf("극값 위 종가에서 발화되어야 합니다: %+v", res.Trade)
	}
}

func TestTracker_TimeoutExpires(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr := New(domain.Resolution30m, testConfig())
	tr.Adopt(refPoint(2, domain.DirectionOpen, base, 100))

	// 목표 가격과 동떨어진 종가만 이어집니다
	for i := 1; i <= 4; i++ {
		res := tr.OnCandle(candleAt(domain.Resolution30m, base.Add(time.Duration(i)*30*time.Minute), 150))
		if len(res.Rows) != 0 || res.Trade != nil {
			t.Fatalf("제한시간 안에서는 탐색만 계속해야 합니다: %+v", res)
		}
	}

	// 제한시간(2h)을 넘긴 첫 캔들에서 만료됩니다
	res := tr.OnCandle(candleAt(domain.Resolution30m, base.Add(150*time.Minute), 150))
	if len(res.Rows) != 1 || res.Rows[0].Kind != domain.KindExpired {
		t.Fatalf("만료 행이 나와야 합니다: %+v", res.Rows)
	}
	if res.Rows[0].Sequence != 2 {
		t.Errorf("만료 행의 시퀀스 = %d, 기대값 = 2", res.Rows[0].Sequence)
	}
	if res.Trade != nil {
		t.Errorf("만료 시 체결이 나오면 안 됩니다: %+v", res.Trade)
	}
	if tr.Phase() != PhaseIdle || tr.Reference() != nil {
		t.Errorf("만료 후 대기 상태로 돌아가야 합니다: phase=%s", tr.Phase())
	}
}

func TestTracker_TimeoutDuringTracking(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr := New(domain.Resolution30m, testConfig())
	tr.Adopt(refPoint(2, domain.DirectionOpen, base, 100))

	// 일치 후 저점만 낮아지다가 제한시간을 넘깁니다
	tr.OnCandle(candleAt(domain.Resolution30m, base.Add(30*time.Minute), 100))
	tr.OnCandle(candleAt(domain.Resolution30m, base.Add(60*time.Minute), 99))
	tr.OnCandle(candleAt(domain.Resolution30m, base.Add(90*time.Minute), 98))

	res := tr.OnCandle(candleAt(domain.Resolution30m, base.Add(150*time.Minute), 97))
	if len(res.Rows) != 1 || res.Rows[0].Kind != domain.KindExpired {
		t.Fatalf("추적 중에도 제한시간이 지나면 만료되어야 합니다: %+v", res.Rows)
	}
	if res.Rows[0].Extremum != 98 {
		t.Errorf("만료 행에 마지막 극값이 담겨야 합니다: %.4f", res.Rows[0].Extremum)
	}
}

func TestTracker_NewReferencePreempts(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr := New(domain.Resolution30m, testConfig())

	tr.Adopt(refPoint(1, domain.DirectionOpen, base, 100))
	tr.OnCandle(candleAt(domain.Resolution30m, base.Add(30*time.Minute), 100))
	if tr.Phase() != PhaseTracking {
		t.Fatalf("전제 조건: 추적 중이어야 합니다: %s", tr.Phase())
	}

	// 새 기준점이 오면 추적 중이던 기준점을 버리고 다시 탐색합니다
	rows := tr.Adopt(refPoint(2, domain.DirectionClose, base.Add(time.Hour), 150))
	if len(rows) != 2 {
		t.Fatalf("대체 시 행이 2개여야 합니다: %d", len(rows))
	}
	if rows[0].Kind != domain.KindExpired || rows[0].Sequence != 1 {
		t.Errorf("이전 기준점의 만료 행이 먼저 나와야 합니다: %+v", rows[0])
	}
	if rows[1].Kind != domain.KindReference || rows[1].Sequence != 2 {
		t.Errorf("새 기준점 행이 나와야 합니다: %+v", rows[1])
	}
	if tr.Phase() != PhaseSearching {
		t.Errorf("대체 후 단계가 SEARCHING이어야 합니다: %s", tr.Phase())
	}
	if tr.Reference().Sequence != 2 {
		t.Errorf("활성 기준점이 교체되어야 합니다: %+v", tr.Reference())
	}
}

// 원장이 체결을 거절해도 추적기는 상태를 유지하고 다시 발화할 수 있습니다
func TestTracker_RejectedProposalKeepsState(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr := New(domain.Resolution15m, testConfig())
	tr.Adopt(refPoint(1, domain.DirectionOpen, base, 100))

	tr.OnCandle(candleAt(domain.Resolution15m, base.Add(15*time.Minute), 100))
	tr.OnCandle(candleAt(domain.Resolution15m, base.Add(30*time.Minute), 97))

	res := tr.OnCandle(candleAt(domain.Resolution15m, base.Add(45*time.Minute), 98))
	if res.Trade == nil {
		t.Fatal("전제 조건: 발화가 있어야 합니다")
	}

	tr.Resolve(false)
	if tr.Phase() != PhaseTracking {
		t.Errorf("거절 후에도 TRACKING이어야 합니다: %s", tr.Phase())
	}
	if tr.Reference() == nil || tr.Reference().Sequence != 1 {
		t.Errorf("거절 후에도 기준점이 유지되어야 합니다: %+v", tr.Reference())
	}

	// 극값(97) 위의 종가는 다시 발화합니다
	res = tr.OnCandle(candleAt(domain.Resolution15m, base.Add(60*time.Minute), 99))
	if res.Trade == nil || res.Trade.Price != 99 {
		t.Fatalf("거절 후에도 다시 발화할 수 있어야 합니다: %+v", res.Trade)
	}

	tr.Resolve(true)
	if tr.Phase() != PhaseIdle || tr.Reference() != nil {
		t.Errorf("수락 후 대기 상태로 돌아가야 합니다: phase=%s", tr.Phase())
	}
}
