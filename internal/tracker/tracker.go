package tracker

import (
	"math"
	"time"

	"github.com/assist-by/kestrel/internal/domain"
)

// Phase는 추적기의 단계를 정의합니다
type Phase string

const (
	// PhaseIdle은 활성 기준점이 없는 상태입니다
	PhaseIdle Phase = "IDLE"
	// PhaseSearching은 기준점의 목표 가격과 일치하는 캔들을 찾는 상태입니다
	PhaseSearching Phase = "SEARCHING"
	// PhaseTracking은 목표 가격을 찾은 뒤 극값을 추적하는 상태입니다
	PhaseTracking Phase = "TRACKING"
)

// Config는 추적기 설정을 정의합니다
type Config struct {
	PriceEpsilon        float64       // 탐색 가격 허용 오차 (기본값: 0.1)
	ConfirmationTimeout time.Duration // 탐색+추적 제한시간, 앵커 시간 기준 (기본값: 2h)
}

// Result는 캔들 하나를 처리한 결과입니다. Trade는 체결 제안일 뿐이며,
// 원장의 중재 결과는 Resolve로 돌려받습니다.
type Result struct {
	Rows  []domain.SignalRow
	Trade *domain.Trade
}

// Status는 조회용 추적기 상태 스냅샷입니다
type Status struct {
	Resolution domain.Resolution `json:"resolution"`
	Phase      Phase             `json:"phase"`
	Sequence   int               `json:"sequence,omitempty"`
	Direction  domain.Direction  `json:"direction,omitempty"`
	Extremum   float64           `json:"extremum,omitempty"`
	Deadline   time.Time         `json:"deadline,omitempty"`
}

// Tracker는 타임프레임 하나가 기준점을 소비하는 SEARCH→TRACK→TRIGGER
// 상태 기계입니다. 앵커 크로스오버는 거친 종가로 계산되므로, 실제 전환이
// 일어난 순간을 자기 캔들 격자에서 목표 가격으로 다시 찾아낸 뒤에야
// 극값 추적을 시작합니다.
//
// 상태는 소유자(엔진)의 호출로만 변하며 추적기 자체는 잠금을 갖지
// 않습니다. 같은 타임프레임의 캔들은 시간순으로 들어와야 합니다.
type Tracker struct {
	resolution domain.Resolution
	epsilon    float64
	timeout    time.Duration

	phase    Phase
	ref      *domain.ReferencePoint
	extremum float64
}

// New는 새로운 추적기를 생성합니다
func New(resolution domain.Resolution, cfg Config) *Tracker {
	return &Tracker{
		resolution: resolution,
		epsilon:    cfg.PriceEpsilon,
		timeout:    cfg.ConfirmationTimeout,
		phase:      PhaseIdle,
	}
}

// Resolution은 추적기의 타임프레임을 반환합니다
func (t *Tracker) Resolution() domain.Resolution {
	return t.resolution
}

// Phase는 현재 단계를 반환합니다
func (t *Tracker) Phase() Phase {
	return t.phase
}

// Reference는 현재 활성 기준점을 반환합니다 (없으면 nil)
func (t *Tracker) Reference() *domain.ReferencePoint {
	return t.ref
}

// Status는 조회용 상태 스냅샷을 반환합니다
func (t *Tracker) Status() Status {
	s := Status{
		Resolution: t.resolution,
		Phase:      t.phase,
	}
	if t.ref != nil {
		s.Sequence = t.ref.Sequence
		s.Direction = t.ref.Direction
		s.Extremum = t.extremum
		s.Deadline = t.ref.AnchorTime.Add(t.timeout)
	}
	return s
}

// Adopt는 새 기준점을 받아 탐색을 시작합니다. 이미 활성 기준점이 있으면
// 새 기준점이 우선합니다 — 기준점은 원장 상태가 맞을 때만 만들어지므로
// 새 기준점이 왔다는 것은 이전 기준점이 이미 낡았다는 뜻입니다.
func (t *Tracker) Adopt(ref *domain.ReferencePoint) []domain.SignalRow {
	var rows []domain.SignalRow

	if t.ref != nil {
		rows = append(rows, domain.SignalRow{
			Time:       ref.AnchorTime,
			Resolution: t.resolution,
			Kind:       domain.KindExpired,
			Direction:  t.ref.Direction,
			Price:      t.ref.TargetPrice,
			Sequence:   t.ref.Sequence,
			Extremum:   t.extremum,
			Note:       "새 기준점으로 대체",
		})
	}

	t.ref = ref
	t.phase = PhaseSearching
	t.extremum = 0

	rows = append(rows, domain.SignalRow{
		Time:       ref.AnchorTime,
		Resolution: t.resolution,
		Kind:       domain.KindReference,
		Direction:  ref.Direction,
		Price:      ref.TargetPrice,
		Sequence:   ref.Sequence,
	})
	return rows
}

// OnCandle은 캔들 하나를 처리합니다. 캔들은 시간순으로 들어와야 합니다.
func (t *Tracker) OnCandle(c domain.Candle) Result {
	if t.phase == PhaseIdle {
		return Result{}
	}

	// 확정 제한시간 검사: 앵커 시간 기준으로 탐색과 추적을 합쳐 제한합니다.
	// 제한시간을 넘기면 기준점을 버리고 대기 상태로 돌아갑니다.
	if c.OpenTime.After(t.ref.AnchorTime.Add(t.timeout)) {
		row := domain.SignalRow{
			Time:       c.OpenTime,
			Resolution: t.resolution,
			Kind:       domain.KindExpired,
			Direction:  t.ref.Direction,
			Price:      t.ref.TargetPrice,
			Sequence:   t.ref.Sequence,
			Extremum:   t.extremum,
			Note:       "확정 제한시간 초과",
		}
		t.reset()
		return Result{Rows: []domain.SignalRow{row}}
	}

	switch t.phase {
	case PhaseSearching:
		return t.search(c)
	case PhaseTracking:
		return t.track(c)
	}
	return Result{}
}

// search는 목표 가격과 일치하는 종가를 찾습니다
func (t *Tracker) search(c domain.Candle) Result {
	// 앵커 캔들 시점과 그 이전의 캔들은 전환 이전이므로 건너뜁니다
	if !c.OpenTime.After(t.ref.AnchorTime) {
		return Result{}
	}

	if math.Abs(c.Close-t.ref.TargetPrice) >= t.epsilon {
		return Result{}
	}

	// 목표 가격 확인 — 추적 시작, 극값은 목표 가격으로 초기화
	t.phase = PhaseTracking
	t.extremum = t.ref.TargetPrice

	return Result{Rows: []domain.SignalRow{{
		Time:       c.OpenTime,
		Resolution: t.resolution,
		Kind:       domain.KindSearchConfirmed,
		Direction:  t.ref.Direction,
		Price:      c.Close,
		Sequence:   t.ref.Sequence,
		Extremum:   t.extremum,
	}}}
}

// track은 극값을 갱신하고 반전 시 체결을 발화합니다
func (t *Tracker) track(c domain.Candle) Result {
	switch t.ref.Direction {
	case domain.DirectionOpen:
		// 저점 추적: 종가가 저점보다 낮으면 갱신, 높으면 반등으로 보고 매수
		if c.Close < t.extremum {
			t.extremum = c.Close
		} else if c.Close > t.extremum {
			return Result{Trade: &domain.Trade{
				Sequence:   t.ref.Sequence,
				Resolution: t.resolution,
				Side:       domain.SideBuy,
				Time:       c.OpenTime,
				Price:      c.Close,
			}}
		}

	case domain.DirectionClose:
		// 고점 추적: 종가가 고점보다 높으면 갱신, 낮으면 되돌림으로 보고 매도
		if c.Close > t.extremum {
			t.extremum = c.Close
		} else if c.Close < t.extremum {
			return Result{Trade: &domain.Trade{
				Sequence:   t.ref.Sequence,
				Resolution: t.resolution,
				Side:       domain.SideSell,
				Time:       c.OpenTime,
				Price:      c.Close,
			}}
		}
	}

	return Result{Rows: []domain.SignalRow{{
		Time:       c.OpenTime,
		Resolution: t.resolution,
		Kind:       domain.KindTracking,
		Direction:  t.ref.Direction,
		Price:      c.Close,
		Sequence:   t.ref.Sequence,
		Extremum:   t.extremum,
	}}}
}

// Resolve는 체결 제안에 대한 원장의 중재 결과를 반영합니다.
// 수락되면 기준점을 비우고 대기 상태로 돌아갑니다. 거절되면 상태를
// 유지합니다 — 다른 타임프레임이 먼저 체결했더라도 이 추적기는 새
// 기준점이 오거나 제한시간이 지날 때까지 계속 추적합니다.
func (t *Tracker) Resolve(accepted bool) {
	if accepted {
		t.reset()
	}
}

// reset은 대기 상태로 되돌립니다
func (t *Tracker) reset() {
	t.phase = PhaseIdle
	t.ref = nil
	t.extremum = 0
}
