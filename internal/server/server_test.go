package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/assist-by/kestrel/internal/analysis/indicator"
	"github.com/assist-by/kestrel/internal/domain"
	"github.com/assist-by/kestrel/internal/engine"
	"github.com/assist-by/kestrel/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 7번째 캔들에서 음수 영역 골든크로스가 나오는 종가열로 엔진 상태를
// 만들어 둔 서버를 준비합니다
func newTestServer(t *testing.T) *Server {
	t.Helper()

	eng, err := engine.New(engine.Config{
		Market:           "btctwd",
		AnchorResolution: domain.Resolution1h,
		TrackResolutions: []domain.Resolution{domain.Resolution30m},
		MACD:             indicator.MACDOption{FastPeriod: 2, SlowPeriod: 3, SignalPeriod: 2},
		Tracker:          tracker.Config{PriceEpsilon: 0.1, ConfirmationTimeout: 2 * time.Hour},
		HistoryLimit:     400,
	}, nil)
	require.NoError(t, err)

	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	closes := []float64{10, 9.5, 8.8, 7.8, 6.5, 5.0, 6.5}
	candles := make(domain.CandleList, 0, len(closes))
	for i, close := range closes {
		open := base.Add(time.Duration(i) * time.Hour)
		candles = append(candles, domain.Candle{
			OpenTime: open, CloseTime: open.Add(time.Hour),
			Open: close, High: close, Low: close, Close: close,
			Volume: 1, Market: "btctwd", Resolution: domain.Resolution1h,
		})
	}
	_, err = eng.Replay(map[domain.Resolution]domain.CandleList{domain.Resolution1h: candles})
	require.NoError(t, err)

	return New("127.0.0.1:0", eng, false)
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.router.ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	w := doGet(t, s, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "btctwd", body["market"])
	assert.Equal(t, "1h", body["anchor_resolution"])
	assert.Equal(t, "FLAT", body["position"])
}

func TestServer_Stats(t *testing.T) {
	s := newTestServer(t)

	w := doGet(t, s, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats domain.Statistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	// 진입 기준점이 시퀀스 1을 받아갔습니다
	assert.Equal(t, 2, stats.NextSequence)
	assert.Equal(t, 0, stats.TotalTrades)
}

func TestServer_SignalsFilter(t *testing.T) {
	s := newTestServer(t)

	w := doGet(t, s, "/api/signals")
	require.Equal(t, http.StatusOK, w.Code)
	var all []domain.SignalRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all, 2) // 교차 행 + 기준점 채택 행

	w = doGet(t, s, "/api/signals?resolution=1h")
	require.Equal(t, http.StatusOK, w.Code)
	var anchor []domain.SignalRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &anchor))
	require.Len(t, anchor, 1)
	assert.Equal(t, domain.KindCrossover, anchor[0].Kind)

	w = doGet(t, s, "/api/signals?resolution=7m")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "지원하지 않는")
}

func TestServer_SignalsEmptyIsArray(t *testing.T) {
	s := newTestServer(t)

	// 행이 없는 타임프레임도 null이 아닌 빈 배열을 돌려줍니다
	w := doGet(t, s, "/api/signals?resolution=5m")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestServer_References(t *testing.T) {
	s := newTestServer(t)

	w := doGet(t, s, "/api/references")
	require.Equal(t, http.StatusOK, w.Code)

	var refs []domain.ReferencePoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refs))
	require.Len(t, refs, 1)
	assert.Equal(t, 1, refs[0].Sequence)
	assert.Equal(t, domain.DirectionOpen, refs[0].Direction)
	assert.InDelta(t, 6.5, refs[0].TargetPrice, 1e-9)
}

func TestServer_Trackers(t *testing.T) {
	s := newTestServer(t)

	w := doGet(t, s, "/api/trackers")
	require.Equal(t, http.StatusOK, w.Code)

	var statuses []tracker.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, domain.Resolution30m, statuses[0].Resolution)
	assert.Equal(t, tracker.PhaseSearching, statuses[0].Phase)
}
