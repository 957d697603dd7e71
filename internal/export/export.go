package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/assist-by/kestrel/internal/domain"
	"github.com/assist-by/kestrel/internal/engine"
)

const timeLayout = "2006-01-02 15:04:05"

// Exporter는 실행 결과를 CSV와 JSON 파일로 남깁니다.
// 타임프레임별 시그널 CSV, 거래 페어 CSV, 전체 보고서 JSON을 만듭니다.
type Exporter struct {
	dir string
}

// NewExporter는 출력 디렉터리를 준비하고 새로운 Exporter를 생성합니다
func NewExporter(dir string) (*Exporter, error) {
	if dir == "" {
		return nil, fmt.Errorf("출력 디렉터리가 설정되지 않았습니다")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("출력 디렉터리 생성 실패: %w", err)
	}
	return &Exporter{dir: dir}, nil
}

// Dir은 출력 디렉터리 경로를 반환합니다
func (e *Exporter) Dir() string {
	return e.dir
}

// WriteReport는 보고서 전체를 파일로 기록합니다.
// signals_<타임프레임>.csv / trade_pairs.csv / report.json 이 만들어집니다.
func (e *Exporter) WriteReport(report *engine.Report) error {
	byRes := make(map[domain.Resolution][]domain.SignalRow)
	for _, row := range report.Rows {
		byRes[row.Resolution] = append(byRes[row.Resolution], row)
	}

	resolutions := make([]domain.Resolution, 0, len(byRes))
	for res := range byRes {
		resolutions = append(resolutions, res)
	}
	sort.Slice(resolutions, func(i, j int) bool {
		return resolutions[i].Minutes() > resolutions[j].Minutes()
	})

	for _, res := range resolutions {
		if err := e.writeSignalsCSV(res, byRes[res]); err != nil {
			return err
		}
	}
	if err := e.writeTradePairsCSV(report.Stats.TradePairs); err != nil {
		return err
	}
	return e.writeReportJSON(report)
}

// writeSignalsCSV는 한 타임프레임의 시그널 행들을 CSV로 기록합니다
func (e *Exporter) writeSignalsCSV(res domain.Resolution, rows []domain.SignalRow) error {
	path := filepath.Join(e.dir, fmt.Sprintf("signals_%s.csv", res))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("시그널 CSV 생성 실패: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"time", "kind", "direction", "side", "sequence", "price", "extremum", "macd", "signal", "histogram", "note"})
	for _, row := range rows {
		record := []string{
			row.Time.Format(timeLayout),
			string(row.Kind),
			string(row.Direction),
			string(row.Side),
			itoa(row.Sequence),
			ftoa(row.Price),
			ftoa(row.Extremum),
			"", "", "",
			row.Note,
		}
		if row.Indicators != nil {
			record[7] = ftoa6(row.Indicators.MACD)
			record[8] = ftoa6(row.Indicators.Signal)
			record[9] = ftoa6(row.Indicators.Histogram)
		}
		w.Write(record)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("시그널 CSV 기록 실패 (%s): %w", res, err)
	}
	return nil
}

// writeTradePairsCSV는 완성된 거래 페어들을 CSV로 기록합니다
func (e *Exporter) writeTradePairsCSV(pairs []domain.TradePair) error {
	path := filepath.Join(e.dir, "trade_pairs.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("거래 페어 CSV 생성 실패: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"sequence", "buy_time", "buy_price", "sell_time", "sell_price", "profit", "holding_minutes"})
	for _, p := range pairs {
		w.Write([]string{
			itoa(p.Sequence),
			p.BuyTime.Format(timeLayout),
			ftoa(p.BuyPrice),
			p.SellTime.Format(timeLayout),
			ftoa(p.SellPrice),
			ftoa(p.Profit),
			strconv.FormatFloat(p.HoldingDuration().Minutes(), 'f', 1, 64),
		})
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("거래 페어 CSV 기록 실패: %w", err)
	}
	return nil
}

// writeReportJSON은 보고서 전체를 JSON으로 기록합니다
func (e *Exporter) writeReportJSON(report *engine.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("보고서 직렬화 실패: %w", err)
	}

	path := filepath.Join(e.dir, "report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("보고서 JSON 기록 실패: %w", err)
	}
	return nil
}

func itoa(x int) string {
	if x == 0 {
		return ""
	}
	return strconv.Itoa(x)
}

func ftoa(x float64) string {
	if x == 0 {
		return ""
	}
	return strconv.FormatFloat(x, 'f', 4, 64)
}

func ftoa6(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
