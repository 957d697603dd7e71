package max

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/assist-by/kestrel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetCandles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/k", r.URL.Path)
		assert.Equal(t, "btctwd", r.URL.Query().Get("market"))
		assert.Equal(t, "60", r.URL.Query().Get("period"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		// 최신 캔들이 먼저 와도 시간순으로 정렬되어 반환되어야 합니다
		fmt.Fprint(w, `[[1710061200,100.5,101,99.5,100,12.3],[1710057600,99,100.8,98.5,100.5,10.1]]`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithTimeout(5*time.Second))
	candles, err := client.GetCandles(context.Background(), "btctwd", domain.Resolution1h, 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	require.NoError(t, candles.Validate())

	first := candles[0]
	assert.Equal(t, time.Unix(1710057600, 0).UTC(), first.OpenTime)
	assert.Equal(t, time.Unix(1710057600, 0).UTC().Add(time.Hour), first.CloseTime)
	assert.Equal(t, 99.0, first.Open)
	assert.Equal(t, 100.8, first.High)
	assert.Equal(t, 98.5, first.Low)
	assert.Equal(t, 100.5, first.Close)
	assert.Equal(t, 10.1, first.Volume)
	assert.Equal(t, "btctwd", first.Market)
	assert.Equal(t, domain.Resolution1h, first.Resolution)
}

func TestClient_GetCandlesStringValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[[1710057600,"99","100.8","98.5","100.5","10.1"]]`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	candles, err := client.GetCandles(context.Background(), "btctwd", domain.Resolution30m, 1)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 100.5, candles[0].Close)
	assert.Equal(t, 30*time.Minute, candles[0].CloseTime.Sub(candles[0].OpenTime))
}

func TestClient_GetCandlesInvalidResolution(t *testing.T) {
	client := NewClient(WithBaseURL("http://127.0.0.1:0"))
	_, err := client.GetCandles(context.Background(), "btctwd", domain.Resolution("7m"), 10)
	assert.Error(t, err)
}

func TestClient_GetTicker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tickers/btctwd", r.URL.Path)
		fmt.Fprint(w, `{"at":1710057600,"buy":"2150000.0","sell":"2151000.0","last":"2150500.0","vol":"123.45"}`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	ticker, err := client.GetTicker(context.Background(), "btctwd")
	require.NoError(t, err)

	assert.Equal(t, "btctwd", ticker.Market)
	assert.Equal(t, time.Unix(1710057600, 0).UTC(), ticker.At)
	assert.Equal(t, 2150500.0, ticker.Last)
	assert.Equal(t, 2150000.0, ticker.Buy)
	assert.Equal(t, 2151000.0, ticker.Sell)
	assert.Equal(t, 123.45, ticker.Volume)
}

func TestClient_GetServerTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/timestamp", r.URL.Path)
		fmt.Fprint(w, "1710057600")
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	serverTime, err := client.GetServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1710057600, 0).UTC(), serverTime)
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":2004,"message":"invalid period"}}`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.GetCandles(context.Background(), "btctwd", domain.Resolution1h, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2004")
	assert.Contains(t, err.Error(), "invalid period")
}
