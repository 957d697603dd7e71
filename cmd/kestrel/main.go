package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"github.com/assist-by/kestrel/internal/analysis/indicator"
	"github.com/assist-by/kestrel/internal/config"
	"github.com/assist-by/kestrel/internal/domain"
	"github.com/assist-by/kestrel/internal/engine"
	"github.com/assist-by/kestrel/internal/exchange"
	eBinance "github.com/assist-by/kestrel/internal/exchange/binance"
	eMax "github.com/assist-by/kestrel/internal/exchange/max"
	"github.com/assist-by/kestrel/internal/export"
	"github.com/assist-by/kestrel/internal/market"
	"github.com/assist-by/kestrel/internal/notification/discord"
	"github.com/assist-by/kestrel/internal/scheduler"
	"github.com/assist-by/kestrel/internal/server"
	"github.com/assist-by/kestrel/internal/tracker"
)

// CollectorTask는 타임프레임 하나의 캔들 수집 작업을 정의합니다
type CollectorTask struct {
	collector  *market.Collector
	resolution domain.Resolution
}

// Execute는 수집 작업을 실행합니다
func (t *CollectorTask) Execute(ctx context.Context) error {
	_, err := t.collector.CollectResolution(ctx, t.resolution)
	return err
}

func main() {
	// 명령줄 플래그 정의
	replayFlag := flag.Bool("replay", false, "캔들 이력을 일괄 재생하고 결과를 내보낸 뒤 종료")
	scenarioFlag := flag.String("scenario", "", "재생에 사용할 YAML 시나리오 파일 경로")

	// 플래그 파싱
	flag.Parse()

	// 컨텍스트 생성
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 로그 설정
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("시그널 탐지기 시작...")

	// 설정 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("설정 로드 실패: %v", err)
	}

	// 재생 모드: 알림 없이 탐지 경로만 돌리고 결과 파일을 남깁니다
	if *replayFlag {
		runReplay(ctx, cfg, *scenarioFlag)
		return
	}

	// Discord 클라이언트 생성 (웹훅이 비어 있는 채널은 건너뜁니다)
	discordClient := discord.NewClient(
		cfg.Discord.SignalWebhook,
		cfg.Discord.TradeWebhook,
		cfg.Discord.ErrorWebhook,
		cfg.Discord.InfoWebhook,
		discord.WithTimeout(10*time.Second),
	)

	// 시작 알림 전송
	startMsg := fmt.Sprintf("🚀 시그널 탐지기가 시작되었습니다. (마켓: %s, 앵커: %s)", cfg.App.Market, cfg.App.AnchorResolution)
	if err := discordClient.SendInfo(startMsg); err != nil {
		log.Printf("시작 알림 전송 실패: %v", err)
	}

	// 거래소 캔들 소스 생성
	source := buildSource(cfg)

	// 거래소 서버와 시간 동기화
	if err := source.SyncTime(ctx); err != nil {
		log.Printf("거래소 서버 시간 동기화 실패: %v", err)
		if err := discordClient.SendError(fmt.Errorf("거래소 서버 시간 동기화 실패: %w", err)); err != nil {
			log.Printf("에러 알림 전송 실패: %v", err)
		}
		os.Exit(1)
	}

	// 탐지 엔진 생성
	eng, err := engine.New(engine.Config{
		Market:           cfg.App.Market,
		AnchorResolution: cfg.App.AnchorResolution,
		TrackResolutions: cfg.App.TrackResolutions,
		MACD: indicator.MACDOption{
			FastPeriod:   cfg.MACD.FastPeriod,
			SlowPeriod:   cfg.MACD.SlowPeriod,
			SignalPeriod: cfg.MACD.SignalPeriod,
		},
		Tracker: tracker.Config{
			PriceEpsilon:        cfg.Tracker.PriceEpsilon,
			ConfirmationTimeout: cfg.Tracker.ConfirmationTimeout,
		},
		HistoryLimit: cfg.App.CandleLimit,
	}, discordClient)
	if err != nil {
		log.Fatalf("엔진 생성 실패: %v", err)
	}

	// 데이터 수집기 생성
	collector := market.NewCollector(
		source,
		eng,
		market.WithNotifier(discordClient),
		market.WithCandleLimit(cfg.App.CandleLimit),
		market.WithFinerCandleLimit(cfg.App.FinerCandleLimit),
		market.WithPollLimit(cfg.App.PollLimit),
		market.WithRetryConfig(market.RetryConfig{
			MaxRetries: 3,
			BaseDelay:  1 * time.Second,
			MaxDelay:   30 * time.Second,
			Factor:     2.0,
		}),
	)

	// 앵커 이력을 읽어 지표를 예열합니다
	if err := collector.Bootstrap(ctx); err != nil {
		log.Printf("수집기 예열 실패: %v", err)
		if err := discordClient.SendError(fmt.Errorf("수집기 예열 실패: %w", err)); err != nil {
			log.Printf("에러 알림 전송 실패: %v", err)
		}
		os.Exit(1)
	}

	// 타임프레임마다 캔들 닫힘 시각에 맞춘 수집 작업을 겁니다.
	// 거래소가 완결 캔들을 내보낼 시간을 주기 위해 5초 늦게 돕니다.
	resolutions := append([]domain.Resolution{cfg.App.AnchorResolution}, cfg.App.TrackResolutions...)
	schedulers := make([]*scheduler.Scheduler, 0, len(resolutions))
	for _, res := range resolutions {
		task := &CollectorTask{collector: collector, resolution: res}
		sch := scheduler.NewScheduler(string(res), res.Duration(), task, scheduler.WithDelay(5*time.Second))
		schedulers = append(schedulers, sch)

		go func(sch *scheduler.Scheduler) {
			if err := sch.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("스케줄러 실행 중 에러 발생: %v", err)
			}
		}(sch)
	}

	// 바이낸스 소스는 웹소켓 스트림으로 완결 캔들을 즉시 받습니다.
	// 폴링과 겹쳐 들어와도 엔진이 중복 캔들을 걸러냅니다.
	var stream *eBinance.Stream
	if cfg.Exchange.Source == "binance" {
		stream = eBinance.NewStream(cfg.App.Market, resolutions)
		if err := stream.Connect(ctx); err != nil {
			log.Printf("웹소켓 연결 실패, 폴링만 사용합니다: %v", err)
			stream = nil
		} else {
			go func() {
				for candle := range stream.Candles() {
					eng.OnCandle(candle)
				}
			}()
		}
	}

	// 상태 조회 API 서버 시작
	var apiServer *server.Server
	if cfg.Server.Enabled {
		apiServer = server.New(cfg.Server.Addr, eng, cfg.Server.Debug)
		go func() {
			if err := apiServer.Start(); err != nil {
				log.Printf("API 서버 실행 중 에러 발생: %v", err)
			}
		}()
	}

	// 시그널 처리
	sigChan := make(chan os.Signal, 1)
	osSignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 시그널 대기
	sig := <-sigChan
	log.Printf("시스템 종료 신호 수신: %v", sig)

	// 수집 작업 중지
	for _, sch := range schedulers {
		sch.Stop()
	}
	if stream != nil {
		stream.Close()
	}
	cancel()

	// API 서버 종료
	if apiServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("API 서버 종료 실패: %v", err)
		}
	}

	// 종료 알림 전송
	if err := discordClient.SendInfo("👋 시그널 탐지기가 정상적으로 종료되었습니다."); err != nil {
		log.Printf("종료 알림 전송 실패: %v", err)
	}

	log.Println("프로그램을 종료합니다.")
}

// buildSource는 설정된 거래소의 캔들 소스를 생성합니다
func buildSource(cfg *config.Config) exchange.CandleSource {
	switch cfg.Exchange.Source {
	case "binance":
		var opts []eBinance.ClientOption
		if cfg.Exchange.BaseURL != "" {
			opts = append(opts, eBinance.WithBaseURL(cfg.Exchange.BaseURL))
		}
		return eBinance.NewClient(opts...)
	default:
		opts := []eMax.ClientOption{eMax.WithTimeout(10 * time.Second)}
		if cfg.Exchange.BaseURL != "" {
			opts = append(opts, eMax.WithBaseURL(cfg.Exchange.BaseURL))
		}
		return eMax.NewClient(opts...)
	}
}

// runReplay는 캔들 이력 전체를 시간순으로 재생해 탐지 경로를 검증하고,
// 시그널 CSV와 보고서 JSON을 내보냅니다. 시나리오 파일이 주어지면
// 거래소 대신 시나리오의 합성 캔들을 사용합니다.
func runReplay(ctx context.Context, cfg *config.Config, scenarioPath string) {
	marketName := cfg.App.Market
	var series map[domain.Resolution]domain.CandleList

	if scenarioPath != "" {
		sc, err := config.LoadScenario(scenarioPath)
		if err != nil {
			log.Fatalf("시나리오 로드 실패: %v", err)
		}
		marketName = sc.Market
		series = sc.Candles()
		log.Printf("시나리오 재생: %s (시리즈 %d개)", marketName, len(sc.Series))
	}

	// 재생은 오프라인 분석이므로 알림 없이 돌립니다
	eng, err := engine.New(engine.Config{
		Market:           marketName,
		AnchorResolution: cfg.App.AnchorResolution,
		TrackResolutions: cfg.App.TrackResolutions,
		MACD: indicator.MACDOption{
			FastPeriod:   cfg.MACD.FastPeriod,
			SlowPeriod:   cfg.MACD.SlowPeriod,
			SignalPeriod: cfg.MACD.SignalPeriod,
		},
		Tracker: tracker.Config{
			PriceEpsilon:        cfg.Tracker.PriceEpsilon,
			ConfirmationTimeout: cfg.Tracker.ConfirmationTimeout,
		},
		HistoryLimit: cfg.App.CandleLimit,
	}, nil)
	if err != nil {
		log.Fatalf("엔진 생성 실패: %v", err)
	}

	// 시나리오가 없으면 거래소에서 이력을 내려받습니다
	if series == nil {
		source := buildSource(cfg)
		if err := source.SyncTime(ctx); err != nil {
			log.Fatalf("거래소 서버 시간 동기화 실패: %v", err)
		}

		collector := market.NewCollector(
			source,
			eng,
			market.WithCandleLimit(cfg.App.CandleLimit),
			market.WithFinerCandleLimit(cfg.App.FinerCandleLimit),
		)
		log.Printf("캔들 이력 수집: %s", marketName)
		series, err = collector.CollectHistory(ctx)
		if err != nil {
			log.Fatalf("캔들 이력 수집 실패: %v", err)
		}
	}

	report, err := eng.Replay(series)
	if err != nil {
		log.Fatalf("재생 실패: %v", err)
	}

	exporter, err := export.NewExporter(cfg.Export.Dir)
	if err != nil {
		log.Fatalf("내보내기 준비 실패: %v", err)
	}
	if err := exporter.WriteReport(report); err != nil {
		log.Fatalf("결과 내보내기 실패: %v", err)
	}

	stats := report.Stats
	log.Printf("재생 완료: 시그널 행 %d개, 기준점 %d개, 체결 %d건", len(report.Rows), len(report.References), stats.TotalTrades)
	if len(stats.TradePairs) > 0 {
		log.Printf("거래 페어 %d개, 총수익 %.4f, 승률 %.1f%%", len(stats.TradePairs), stats.TotalProfit, stats.WinRate)
	}
	log.Printf("결과를 %s 디렉터리에 저장했습니다", exporter.Dir())
}
