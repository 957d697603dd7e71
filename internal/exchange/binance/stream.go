package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/assist-by/kestrel/internal/domain"
)

const (
	defaultStreamURL = "wss://stream.binance.com:9443/ws"

	streamReadTimeout  = 60 * time.Second
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 20 * time.Second
	maxReconnectWait   = 30 * time.Second
)

// Stream은 바이낸스 웹소켓에서 완결된 캔들만 골라 실시간으로
// 흘려보냅니다. 진행 중인 캔들 갱신 이벤트는 버립니다.
type Stream struct {
	url         string
	market      string
	resolutions []domain.Resolution

	mu      sync.Mutex
	conn    *websocket.Conn
	candles chan domain.Candle
	done    chan struct{}
	once    sync.Once
}

// StreamOption은 스트림 생성 옵션을 정의합니다
type StreamOption func(*Stream)

// WithStreamURL은 웹소켓 URL을 설정합니다
func WithStreamURL(url string) StreamOption {
	return func(s *Stream) {
		s.url = url
	}
}

// NewStream은 마켓 하나의 여러 타임프레임을 구독하는 캔들 스트림을
// 생성합니다
func NewStream(market string, resolutions []domain.Resolution, opts ...StreamOption) *Stream {
	s := &Stream{
		url:         defaultStreamURL,
		market:      market,
		resolutions: append([]domain.Resolution(nil), resolutions...),
		candles:     make(chan domain.Candle, 256),
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Connect는 웹소켓에 연결하고 구독한 뒤 수신 루프를 시작합니다
func (s *Stream) Connect(ctx context.Context) error {
	if err := s.dial(ctx); err != nil {
		return err
	}
	go s.run(ctx)
	return nil
}

// Candles는 완결된 캔들이 흘러나오는 채널을 반환합니다.
// 스트림이 닫히면 채널도 닫힙니다.
func (s *Stream) Candles() <-chan domain.Candle {
	return s.candles
}

// Close는 스트림을 종료합니다
func (s *Stream) Close() {
	s.once.Do(func() {
		close(s.done)
	})
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
}

func (s *Stream) dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("웹소켓 연결 실패: %w", err)
	}

	payload, err := s.subscribePayload()
	if err != nil {
		conn.Close()
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		conn.Close()
		return fmt.Errorf("구독 요청 실패: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	log.Printf("바이낸스 웹소켓 연결 완료: %s 스트림 %d개", s.market, len(s.resolutions))
	return nil
}

func (s *Stream) subscribePayload() ([]byte, error) {
	params := make([]string, 0, len(s.resolutions))
	for _, res := range s.resolutions {
		params = append(params, strings.ToLower(s.market)+"@kline_"+string(res))
	}

	payload := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     time.Now().Unix(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("구독 요청 생성 실패: %w", err)
	}
	return data, nil
}

// run은 읽기 루프를 돌리고, 끊어지면 백오프를 늘려가며 재연결합니다
func (s *Stream) run(ctx context.Context) {
	defer close(s.candles)

	backoff := time.Second
	for {
		err := s.readLoop(ctx)
		if err == nil {
			return
		}
		log.Printf("웹소켓 수신 중단: %v (%s 후 재연결)", err, backoff)

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-time.After(backoff):
			}
			if backoff < maxReconnectWait {
				backoff *= 2
			}
			if derr := s.dial(ctx); derr == nil {
				backoff = time.Second
				break
			} else {
				log.Printf("웹소켓 재연결 실패: %v", derr)
			}
		}
	}
}

func (s *Stream) readLoop(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	})

	pingStop := make(chan struct{})
	defer close(pingStop)
	go pingLoop(conn, pingStop)

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return nil
		case <-s.done:
			conn.Close()
			return nil
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-s.done:
				return nil
			default:
			}
			return fmt.Errorf("메시지 읽기 실패: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))

		candle, err := parseKline(raw, s.market)
		if err != nil {
			log.Printf("캔들 이벤트 파싱 실패: %v", err)
			continue
		}
		if candle == nil {
			continue
		}

		select {
		case s.candles <- *candle:
		default:
			log.Printf("캔들 채널이 가득 차 캔들을 버립니다: %s %s", candle.Resolution, candle.OpenTime)
		}
	}
}

func pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// klineEvent는 바이낸스 kline 웹소켓 이벤트입니다
type klineEvent struct {
	Event string `json:"e"`
	Kline struct {
		StartTime int64  `json:"t"`
		Symbol    string `json:"s"`
		Interval  string `json:"i"`
		Open      string `json:"o"`
		Close     string `json:"c"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Volume    string `json:"v"`
		Closed    bool   `json:"x"`
	} `json:"k"`
}

// parseKline은 웹소켓 이벤트에서 완결된 캔들을 꺼냅니다.
// kline 이벤트가 아니거나 아직 진행 중인 캔들이면 nil을 반환합니다.
func parseKline(raw []byte, market string) (*domain.Candle, error) {
	var event klineEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("이벤트 파싱 실패: %w", err)
	}
	if event.Event != "kline" || !event.Kline.Closed {
		return nil, nil
	}

	resolution, err := domain.ParseResolution(event.Kline.Interval)
	if err != nil {
		return nil, err
	}

	openTime := time.UnixMilli(event.Kline.StartTime).UTC()
	candle := &domain.Candle{
		OpenTime:   openTime,
		CloseTime:  openTime.Add(resolution.Duration()),
		Market:     market,
		Resolution: resolution,
	}

	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"시가", event.Kline.Open, &candle.Open},
		{"고가", event.Kline.High, &candle.High},
		{"저가", event.Kline.Low, &candle.Low},
		{"종가", event.Kline.Close, &candle.Close},
		{"거래량", event.Kline.Volume, &candle.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return nil, fmt.Errorf("캔들 %s 파싱 실패: %w", f.name, err)
		}
		*f.dst = v
	}

	return candle, nil
}
