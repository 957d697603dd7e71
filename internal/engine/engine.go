package engine

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/assist-by/kestrel/internal/analysis/indicator"
	"github.com/assist-by/kestrel/internal/analysis/signal"
	"github.com/assist-by/kestrel/internal/domain"
	"github.com/assist-by/kestrel/internal/ledger"
	"github.com/assist-by/kestrel/internal/notification"
	"github.com/assist-by/kestrel/internal/tracker"
)

// Config는 엔진 설정을 정의합니다
type Config struct {
	Market           string              // 마켓 심볼 (예: btctwd)
	AnchorResolution domain.Resolution   // 교차를 탐지하는 앵커 타임프레임
	TrackResolutions []domain.Resolution // 기준점을 추적하는 하위 타임프레임
	MACD             indicator.MACDOption
	Tracker          tracker.Config
	HistoryLimit     int // 보존할 앵커 캔들 개수
}

// Engine은 앵커 타임프레임의 MACD 교차에서 기준점을 만들고, 하위
// 타임프레임 추적기들에 배포하며, 추적기가 제안한 체결을 원장으로
// 중재하는 오케스트레이터입니다.
//
// 캔들은 OnCandle 하나로 들어오고 모든 상태 변경은 엔진 잠금 안에서
// 일어납니다. 타임프레임별 수집 작업이 동시에 호출해도 안전합니다.
type Engine struct {
	mu sync.Mutex

	market     string
	anchorRes  domain.Resolution
	macdOpt    indicator.MACDOption
	historyCap int

	detector *signal.Detector
	ledger   *ledger.Ledger
	trackers map[domain.Resolution]*tracker.Tracker
	trackRes []domain.Resolution // 거친 타임프레임부터

	history domain.CandleList                       // 앵커 캔들 이력
	buffers map[domain.Resolution]domain.CandleList // 채택 시 재생할 최근 완결 캔들
	bufCap  map[domain.Resolution]int

	rows []domain.SignalRow
	refs []domain.ReferencePoint

	notifier notification.Notifier
}

// New는 새로운 엔진을 생성합니다. notifier가 nil이면 알림을 보내지
// 않습니다.
func New(cfg Config, notifier notification.Notifier) (*Engine, error) {
	if cfg.Market == "" {
		return nil, fmt.Errorf("마켓이 설정되지 않았습니다")
	}
	if !cfg.AnchorResolution.IsValid() {
		return nil, fmt.Errorf("유효하지 않은 앵커 타임프레임: %s", cfg.AnchorResolution)
	}
	if err := indicator.ValidateMACDOption(cfg.MACD); err != nil {
		return nil, err
	}
	if len(cfg.TrackResolutions) == 0 {
		return nil, fmt.Errorf("추적 타임프레임이 없습니다")
	}
	if cfg.Tracker.PriceEpsilon <= 0 {
		return nil, fmt.Errorf("가격 허용 오차는 0보다 커야 합니다: %f", cfg.Tracker.PriceEpsilon)
	}
	if cfg.Tracker.ConfirmationTimeout <= 0 {
		return nil, fmt.Errorf("확정 제한시간은 0보다 커야 합니다: %s", cfg.Tracker.ConfirmationTimeout)
	}
	if cfg.HistoryLimit < cfg.MACD.WarmupLength()+2 {
		return nil, fmt.Errorf("앵커 이력 보존 개수가 너무 작습니다: %d", cfg.HistoryLimit)
	}

	e := &Engine{
		market:     cfg.Market,
		anchorRes:  cfg.AnchorResolution,
		macdOpt:    cfg.MACD,
		historyCap: cfg.HistoryLimit,
		detector:   signal.NewDetector(),
		ledger:     ledger.New(),
		trackers:   make(map[domain.Resolution]*tracker.Tracker),
		buffers:    make(map[domain.Resolution]domain.CandleList),
		bufCap:     make(map[domain.Resolution]int),
		notifier:   notifier,
	}

	for _, res := range cfg.TrackResolutions {
		if !res.IsValid() {
			return nil, fmt.Errorf("유효하지 않은 추적 타임프레임: %s", res)
		}
		if res.Minutes() >= cfg.AnchorResolution.Minutes() {
			return nil, fmt.Errorf("추적 타임프레임 %s은 앵커 %s보다 짧아야 합니다", res, cfg.AnchorResolution)
		}
		if _, dup := e.trackers[res]; dup {
			return nil, fmt.Errorf("중복된 추적 타임프레임: %s", res)
		}
		e.trackers[res] = tracker.New(res, cfg.Tracker)
		e.trackRes = append(e.trackRes, res)
		e.bufCap[res] = int(cfg.Tracker.ConfirmationTimeout/res.Duration()) + 2
	}
	sort.Slice(e.trackRes, func(i, j int) bool {
		return e.trackRes[i].Minutes() > e.trackRes[j].Minutes()
	})

	return e, nil
}

// Market은 마켓 심볼을 반환합니다
func (e *Engine) Market() string {
	return e.market
}

// AnchorResolution은 앵커 타임프레임을 반환합니다
func (e *Engine) AnchorResolution() domain.Resolution {
	return e.anchorRes
}

// TrackResolutions는 추적 타임프레임 목록을 거친 순서로 반환합니다
func (e *Engine) TrackResolutions() []domain.Resolution {
	return append([]domain.Resolution(nil), e.trackRes...)
}

// SeedAnchorHistory는 과거 앵커 캔들로 지표 이력을 준비합니다.
// 과거 구간에 대해서는 교차 탐지를 수행하지 않습니다.
func (e *Engine) SeedAnchorHistory(candles domain.CandleList) error {
	if err := candles.Validate(); err != nil {
		return fmt.Errorf("앵커 이력이 유효하지 않습니다: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(domain.CandleList(nil), candles...)
	if len(e.history) > e.historyCap {
		e.history = e.history[len(e.history)-e.historyCap:]
	}
	log.Printf("앵커 이력 준비 완료: %s %s 캔들 %d개", e.market, e.anchorRes, len(e.history))
	return nil
}

// OnCandle은 완결된 캔들 하나를 처리하고 이번 캔들에서 발생한 시그널
// 행들을 반환합니다. 앵커 캔들은 교차 탐지로, 추적 타임프레임 캔들은
// 해당 추적기로 전달되며, 그 밖의 타임프레임은 무시합니다.
func (e *Engine) OnCandle(c domain.Candle) []domain.SignalRow {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c.Resolution == e.anchorRes {
		return e.onAnchor(c)
	}
	if _, ok := e.trackers[c.Resolution]; ok {
		return e.onTracked(c)
	}
	return nil
}

// onAnchor는 앵커 캔들을 이력에 더하고 MACD 교차를 탐지합니다
func (e *Engine) onAnchor(c domain.Candle) []domain.SignalRow {
	if last, ok := e.history.GetLastCandle(); ok && !c.OpenTime.After(last.OpenTime) {
		log.Printf("중복이거나 역순인 앵커 캔들 무시: %s", c.OpenTime.Format("2006-01-02 15:04"))
		return nil
	}
	e.history = append(e.history, c)
	if len(e.history) > e.historyCap {
		e.history = e.history[len(e.history)-e.historyCap:]
	}

	frames, err := indicator.MACDFrames(e.history, e.macdOpt)
	if err != nil {
		log.Printf("MACD 계산 실패: %v", err)
		e.notifyError(fmt.Errorf("MACD 계산 실패: %w", err))
		return nil
	}
	if len(frames) < 2 {
		return nil
	}

	direction := e.detector.Detect(frames[len(frames)-2], frames[len(frames)-1])
	if direction == domain.DirectionNone {
		return nil
	}

	rows := []domain.SignalRow{{
		Time:       c.OpenTime,
		Resolution: e.anchorRes,
		Kind:       domain.KindCrossover,
		Direction:  direction,
		Price:      c.Close,
		Indicators: frames[len(frames)-1].Snapshot(),
	}}
	log.Printf("[%s %s] %s 교차 탐지 @ %.4f", e.market, e.anchorRes, direction, c.Close)

	// 원장 상태 확인: 진입 교차는 무포지션, 청산 교차는 보유 중일 때만
	// 기준점이 됩니다. 맞지 않으면 교차는 기록만 남기고 버립니다.
	seq, ok := e.sequenceFor(direction)
	if !ok {
		note := fmt.Sprintf("원장 상태 불일치: %s 교차, 포지션 %s", direction, e.ledger.Position())
		log.Printf("기준점 생성 차단: %s", note)
		rows = append(rows, domain.SignalRow{
			Time:       c.OpenTime,
			Resolution: e.anchorRes,
			Kind:       domain.KindBlocked,
			Direction:  direction,
			Price:      c.Close,
			Note:       note,
		})
		e.record(rows)
		return rows
	}

	ref := &domain.ReferencePoint{
		Sequence:    seq,
		Direction:   direction,
		AnchorTime:  c.OpenTime,
		TargetPrice: c.Close,
	}
	e.refs = append(e.refs, *ref)
	log.Printf("%s 생성, 추적 타임프레임 %d개에 배포", ref, len(e.trackRes))
	e.notifyReference(ref)

	// 모든 추적기에 배포한 뒤, 앵커보다 먼저 닫혀 이미 지나간 하위
	// 캔들들을 새 기준점에 재생합니다
	for _, res := range e.trackRes {
		tr := e.trackers[res]
		rows = append(rows, tr.Adopt(ref)...)
		for _, buffered := range e.buffers[res].After(ref.AnchorTime) {
			rows = append(rows, e.feedTracker(tr, buffered)...)
		}
	}

	e.record(rows)
	return rows
}

// onTracked는 추적 타임프레임 캔들을 해당 추적기로 전달합니다
func (e *Engine) onTracked(c domain.Candle) []domain.SignalRow {
	buf := e.buffers[c.Resolution]
	if n := len(buf); n > 0 && !c.OpenTime.After(buf[n-1].OpenTime) {
		return nil
	}
	buf = append(buf, c)
	if limit := e.bufCap[c.Resolution]; len(buf) > limit {
		buf = buf[len(buf)-limit:]
	}
	e.buffers[c.Resolution] = buf

	rows := e.feedTracker(e.trackers[c.Resolution], c)
	e.record(rows)
	return rows
}

// feedTracker는 캔들을 추적기에 공급하고, 체결 제안이 나오면 원장으로
// 중재합니다
func (e *Engine) feedTracker(tr *tracker.Tracker, c domain.Candle) []domain.SignalRow {
	result := tr.OnCandle(c)
	rows := result.Rows
	if result.Trade != nil {
		rows = append(rows, e.arbitrate(tr, *result.Trade))
	}
	return rows
}

// arbitrate는 체결 제안을 원장에 반영하고 결과를 추적기에 되돌립니다.
// 거절된 추적기는 상태를 유지한 채 계속 추적합니다.
func (e *Engine) arbitrate(tr *tracker.Tracker, trade domain.Trade) domain.SignalRow {
	err := e.ledger.Apply(trade)
	accepted := err == nil
	tr.Resolve(accepted)

	if !accepted {
		log.Printf("[%s %s] 체결 거절: %v", e.market, trade.Resolution, err)
		return domain.SignalRow{
			Time:       trade.Time,
			Resolution: trade.Resolution,
			Kind:       domain.KindBlocked,
			Side:       trade.Side,
			Price:      trade.Price,
			Sequence:   trade.Sequence,
			Note:       err.Error(),
		}
	}

	log.Printf("[%s %s] %s 체결 @ %.4f (시퀀스 #%d)", e.market, trade.Resolution, trade.Side, trade.Price, trade.Sequence)
	e.notifyTrade(trade)
	return domain.SignalRow{
		Time:       trade.Time,
		Resolution: trade.Resolution,
		Kind:       domain.KindTrade,
		Side:       trade.Side,
		Price:      trade.Price,
		Sequence:   trade.Sequence,
	}
}

// sequenceFor는 교차 방향이 원장 상태와 맞을 때만 기준점에 부여할
// 시퀀스 번호를 반환합니다. 진입은 새 번호를 발급받고, 청산은 보유 중인
// 매수의 번호를 이어받습니다.
func (e *Engine) sequenceFor(direction domain.Direction) (int, bool) {
	switch direction {
	case domain.DirectionOpen:
		if e.ledger.Position() != domain.PositionFlat {
			return 0, false
		}
		return e.ledger.AllocateSequence(), true
	case domain.DirectionClose:
		return e.ledger.OpenSequence()
	}
	return 0, false
}

func (e *Engine) record(rows []domain.SignalRow) {
	e.rows = append(e.rows, rows...)
}

func (e *Engine) notifyReference(ref *domain.ReferencePoint) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.SendReference(e.market, *ref); err != nil {
		log.Printf("기준점 알림 전송 실패: %v", err)
	}
}

func (e *Engine) notifyTrade(trade domain.Trade) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.SendTrade(e.market, trade); err != nil {
		log.Printf("체결 알림 전송 실패: %v", err)
	}
}

func (e *Engine) notifyError(err error) {
	if e.notifier == nil {
		return
	}
	if nerr := e.notifier.SendError(err); nerr != nil {
		log.Printf("에러 알림 전송 실패: %v", nerr)
	}
}

// Rows는 지금까지 기록된 모든 시그널 행의 사본을 반환합니다
func (e *Engine) Rows() []domain.SignalRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.SignalRow(nil), e.rows...)
}

// RowsByResolution은 특정 타임프레임의 시그널 행만 반환합니다
func (e *Engine) RowsByResolution(res domain.Resolution) []domain.SignalRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	var rows []domain.SignalRow
	for _, row := range e.rows {
		if row.Resolution == res {
			rows = append(rows, row)
		}
	}
	return rows
}

// References는 지금까지 생성된 기준점들의 사본을 반환합니다
func (e *Engine) References() []domain.ReferencePoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.ReferencePoint(nil), e.refs...)
}

// TrackerStatuses는 추적기 상태 스냅샷을 거친 타임프레임 순으로
// 반환합니다
func (e *Engine) TrackerStatuses() []tracker.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	statuses := make([]tracker.Status, 0, len(e.trackRes))
	for _, res := range e.trackRes {
		statuses = append(statuses, e.trackers[res].Status())
	}
	return statuses
}

// Statistics는 원장 통계를 반환합니다
func (e *Engine) Statistics() domain.Statistics {
	return e.ledger.Statistics()
}

// Position은 현재 포지션을 반환합니다
func (e *Engine) Position() domain.Position {
	return e.ledger.Position()
}

// Trades는 수락된 체결 이력을 반환합니다
func (e *Engine) Trades() []domain.Trade {
	return e.ledger.Trades()
}
