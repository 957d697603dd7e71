package max

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	simplejson "github.com/bitly/go-simplejson"

	"github.com/assist-by/kestrel/internal/domain"
	"github.com/assist-by/kestrel/internal/exchange"
)

const defaultBaseURL = "https://max-api.maicoin.com/api/v2"

// Client는 MAX 거래소 공개 API 클라이언트를 구현합니다.
// 캔들과 시세만 다루므로 인증이 필요 없습니다.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	serverTimeOffset time.Duration // 서버 시간과의 차이
	mu               sync.RWMutex
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL은 기본 URL을 설정합니다
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewClient는 새로운 MAX API 클라이언트를 생성합니다
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// doRequest는 HTTP GET 요청을 실행하고 응답 본문을 반환합니다
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("URL 파싱 실패: %w", err)
	}
	if params != nil {
		reqURL.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API 요청 실패: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
			return nil, fmt.Errorf("HTTP 에러(%d): %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("API 에러(코드: %d): %s", apiErr.Error.Code, apiErr.Error.Message)
	}

	return body, nil
}

// GetCandles는 캔들 데이터를 조회합니다. MAX의 /k 응답은
// [시각(초), 시가, 고가, 저가, 종가, 거래량] 배열의 목록입니다.
func (c *Client) GetCandles(ctx context.Context, market string, resolution domain.Resolution, limit int) (domain.CandleList, error) {
	if !resolution.IsValid() {
		return nil, fmt.Errorf("지원하지 않는 타임프레임입니다: %s", resolution)
	}

	params := url.Values{}
	params.Set("market", market)
	params.Set("period", strconv.Itoa(resolution.Minutes()))
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.doRequest(ctx, "/k", params)
	if err != nil {
		return nil, err
	}

	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("캔들 데이터 파싱 실패: %w", err)
	}

	candles := make(domain.CandleList, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			return nil, fmt.Errorf("캔들 항목이 잘못되었습니다: %v", row)
		}
		values := make([]float64, 6)
		for i := 0; i < 6; i++ {
			v, err := toFloat(row[i])
			if err != nil {
				return nil, fmt.Errorf("캔들 값 파싱 실패 (%d번째): %w", i, err)
			}
			values[i] = v
		}

		openTime := time.Unix(int64(values[0]), 0).UTC()
		candles = append(candles, domain.Candle{
			OpenTime:   openTime,
			CloseTime:  openTime.Add(resolution.Duration()),
			Open:       values[1],
			High:       values[2],
			Low:        values[3],
			Close:      values[4],
			Volume:     values[5],
			Market:     market,
			Resolution: resolution,
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})
	return candles, nil
}

// GetTicker는 마켓의 현재 시세를 조회합니다. MAX의 티커 응답은 모든
// 수치를 문자열로 내려줍니다.
func (c *Client) GetTicker(ctx context.Context, market string) (*exchange.Ticker, error) {
	body, err := c.doRequest(ctx, "/tickers/"+market, nil)
	if err != nil {
		return nil, err
	}

	j, err := simplejson.NewJson(body)
	if err != nil {
		return nil, fmt.Errorf("티커 파싱 실패: %w", err)
	}

	ticker := &exchange.Ticker{
		Market: market,
		At:     time.Unix(j.Get("at").MustInt64(), 0).UTC(),
	}
	fields := []struct {
		key string
		dst *float64
	}{
		{"last", &ticker.Last},
		{"buy", &ticker.Buy},
		{"sell", &ticker.Sell},
		{"vol", &ticker.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(j.Get(f.key).MustString(), 64)
		if err != nil {
			return nil, fmt.Errorf("티커 %s 값 파싱 실패: %w", f.key, err)
		}
		*f.dst = v
	}

	return ticker, nil
}

// GetServerTime은 서버 시간을 조회합니다. /timestamp는 초 단위
// 정수 하나를 본문으로 내려줍니다.
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	body, err := c.doRequest(ctx, "/timestamp", nil)
	if err != nil {
		return time.Time{}, err
	}

	seconds, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("서버 시간 파싱 실패: %w", err)
	}
	return time.Unix(seconds, 0).UTC(), nil
}

// SyncTime은 MAX 서버와 시간을 동기화합니다
func (c *Client) SyncTime(ctx context.Context) error {
	serverTime, err := c.GetServerTime(ctx)
	if err != nil {
		return fmt.Errorf("서버 시간 조회 실패: %w", err)
	}

	c.mu.Lock()
	c.serverTimeOffset = serverTime.Sub(time.Now())
	c.mu.Unlock()
	return nil
}

// ServerNow는 동기화된 오프셋을 반영한 현재 서버 시간을 반환합니다
func (c *Client) ServerNow() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(c.serverTimeOffset)
}

// toFloat는 MAX 응답의 수치 값을 float64로 변환합니다. 같은 필드가
// 숫자로도 문자열로도 내려오는 경우가 있습니다.
func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	case json.Number:
		return t.Float64()
	default:
		return 0, fmt.Errorf("변환할 수 없는 값: %v (%T)", v, v)
	}
}
