package config

import (
	"fmt"
	"log"
	"time"

	"github.com/assist-by/kestrel/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// 애플리케이션 설정
	App struct {
		Market           string              `envconfig:"MARKET" default:"btctwd"`
		AnchorResolution domain.Resolution   `envconfig:"ANCHOR_RESOLUTION" default:"1h"`
		TrackResolutions []domain.Resolution `envconfig:"TRACK_RESOLUTIONS" default:"30m,15m,5m"`
		CandleLimit      int                 `envconfig:"CANDLE_LIMIT" default:"400"`
		FinerCandleLimit int                 `envconfig:"FINER_CANDLE_LIMIT" default:"2400"`
		PollLimit        int                 `envconfig:"POLL_LIMIT" default:"3"`
	}

	// MACD 지표 설정
	MACD struct {
		FastPeriod   int `envconfig:"MACD_FAST_PERIOD" default:"12"`
		SlowPeriod   int `envconfig:"MACD_SLOW_PERIOD" default:"26"`
		SignalPeriod int `envconfig:"MACD_SIGNAL_PERIOD" default:"9"`
	}

	// 기준점 추적 설정
	Tracker struct {
		PriceEpsilon        float64       `envconfig:"PRICE_EPSILON" default:"0.1"`
		ConfirmationTimeout time.Duration `envconfig:"CONFIRMATION_TIMEOUT" default:"2h"`
	}

	// 거래소 데이터 소스 설정
	Exchange struct {
		Source  string `envconfig:"EXCHANGE_SOURCE" default:"max"`
		BaseURL string `envconfig:"EXCHANGE_BASE_URL"`
	}

	// 디스코드 웹훅 설정 (비워두면 해당 채널 알림을 보내지 않습니다)
	Discord struct {
		SignalWebhook string `envconfig:"DISCORD_SIGNAL_WEBHOOK"`
		TradeWebhook  string `envconfig:"DISCORD_TRADE_WEBHOOK"`
		ErrorWebhook  string `envconfig:"DISCORD_ERROR_WEBHOOK"`
		InfoWebhook   string `envconfig:"DISCORD_INFO_WEBHOOK"`
	}

	// 상태 조회 API 서버 설정
	Server struct {
		Enabled bool   `envconfig:"SERVER_ENABLED" default:"true"`
		Addr    string `envconfig:"SERVER_ADDR" default:":8080"`
		Debug   bool   `envconfig:"SERVER_DEBUG" default:"false"`
	}

	// 재생 결과 내보내기 설정
	Export struct {
		Dir string `envconfig:"EXPORT_DIR" default:"output"`
	}
}

// ValidateConfig는 설정이 유효한지 확인합니다.
func ValidateConfig(cfg *Config) error {
	if cfg.App.Market == "" {
		return fmt.Errorf("MARKET이 비어 있습니다")
	}
	if !cfg.App.AnchorResolution.IsValid() {
		return fmt.Errorf("지원하지 않는 앵커 타임프레임입니다: %s", cfg.App.AnchorResolution)
	}
	if len(cfg.App.TrackResolutions) == 0 {
		return fmt.Errorf("TRACK_RESOLUTIONS가 비어 있습니다")
	}
	for _, res := range cfg.App.TrackResolutions {
		if !res.IsValid() {
			return fmt.Errorf("지원하지 않는 추적 타임프레임입니다: %s", res)
		}
		if res.Minutes() >= cfg.App.AnchorResolution.Minutes() {
			return fmt.Errorf("추적 타임프레임 %s은 앵커 %s보다 짧아야 합니다", res, cfg.App.AnchorResolution)
		}
	}

	if cfg.MACD.FastPeriod < 1 {
		return fmt.Errorf("MACD_FAST_PERIOD는 1 이상이어야 합니다")
	}
	if cfg.MACD.SlowPeriod <= cfg.MACD.FastPeriod {
		return fmt.Errorf("MACD_SLOW_PERIOD는 MACD_FAST_PERIOD보다 커야 합니다")
	}
	if cfg.MACD.SignalPeriod < 1 {
		return fmt.Errorf("MACD_SIGNAL_PERIOD는 1 이상이어야 합니다")
	}

	// 예열 구간과 교차 판정에 필요한 프레임 2개를 담을 수 있어야 합니다
	if minimum := cfg.MACD.SlowPeriod + cfg.MACD.SignalPeriod; cfg.App.CandleLimit < minimum {
		return fmt.Errorf("CANDLE_LIMIT은 %d 이상이어야 합니다", minimum)
	}
	if cfg.App.FinerCandleLimit < 1 {
		return fmt.Errorf("FINER_CANDLE_LIMIT은 1 이상이어야 합니다")
	}
	if cfg.App.PollLimit < 1 {
		return fmt.Errorf("POLL_LIMIT은 1 이상이어야 합니다")
	}

	if cfg.Tracker.PriceEpsilon <= 0 {
		return fmt.Errorf("PRICE_EPSILON은 0보다 커야 합니다")
	}
	if cfg.Tracker.ConfirmationTimeout < time.Minute {
		return fmt.Errorf("CONFIRMATION_TIMEOUT은 1분 이상이어야 합니다")
	}

	switch cfg.Exchange.Source {
	case "max", "binance":
	default:
		return fmt.Errorf("지원하지 않는 거래소 소스입니다: %s", cfg.Exchange.Source)
	}

	if cfg.Export.Dir == "" {
		return fmt.Errorf("EXPORT_DIR이 비어 있습니다")
	}

	return nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다.
func LoadConfig() (*Config, error) {
	// .env 파일은 있으면 읽고, 없으면 환경변수만 사용합니다
	if err := godotenv.Load(); err != nil {
		log.Printf(".env 파일 없이 환경변수로 설정을 로드합니다")
	}

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}
