package tradelog

// tradelog.go: ingesta del historial de trades exportado por la plataforma.
//
// Formato: datetime,realized,adverse (una fila por trade, valores crudos en
// unidades del instrumento). La cabecera es opcional. Exportaciones UTF-16
// con BOM se decodifican a UTF-8 antes de parsear.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/razor389/prop-simulator/internal/domain"
)

// timeLayouts son los formatos de fecha aceptados, en orden de prueba.
var timeLayouts = []string{
	"20060102 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Load abre path y parsea el trade log.
func Load(path string) (*domain.TradeLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tradelog.Load: %w", err)
	}
	defer f.Close()

	log, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("tradelog.Load: %s: %w", path, err)
	}
	return log, nil
}

// Parse lee el CSV y agrupa los trades por día calendario (UTC), días en
// orden ascendente y trades en el orden del archivo.
//
// Una fila que no se puede parsear hace fallar la carga con ErrData.
// Valores parseables pero inválidos (excursión positiva, NaN) se conservan:
// fallan los trials que los usen, no la carga.
func Parse(r io.Reader) (*domain.TradeLog, error) {
	// BOMOverride detecta BOM UTF-8/UTF-16 y lo descarta; sin BOM, UTF-8.
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	byDay := make(map[string]*domain.TradeDay)
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("tradelog.Parse: %w: %v", domain.ErrData, err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}

		trade, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("tradelog.Parse: line %d: %w", line, err)
		}
		id := trade.Time.Format("2006-01-02")
		day, ok := byDay[id]
		if !ok {
			day = &domain.TradeDay{ID: id}
			byDay[id] = day
		}
		day.Trades = append(day.Trades, trade)
	}

	log := &domain.TradeLog{Days: make([]domain.TradeDay, 0, len(byDay))}
	for _, d := range byDay {
		log.Days = append(log.Days, *d)
	}
	sort.Slice(log.Days, func(i, j int) bool { return log.Days[i].ID < log.Days[j].ID })
	return log, nil
}

func parseRow(rec []string) (domain.RawTrade, error) {
	if len(rec) < 3 {
		return domain.RawTrade{}, fmt.Errorf("%w: want 3 fields (datetime,realized,adverse), got %d", domain.ErrData, len(rec))
	}
	ts, err := parseTime(rec[0])
	if err != nil {
		return domain.RawTrade{}, err
	}
	realized, err := parseFloat(rec[1])
	if err != nil {
		return domain.RawTrade{}, fmt.Errorf("%w: realized %q", domain.ErrData, rec[1])
	}
	adverse, err := parseFloat(rec[2])
	if err != nil {
		return domain.RawTrade{}, fmt.Errorf("%w: adverse %q", domain.ErrData, rec[2])
	}
	return domain.RawTrade{Time: ts, RealizedPnL: realized, AdverseExcursion: adverse}, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.Trim(s, `"`))
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized datetime %q", domain.ErrData, s)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(strings.Trim(s, `"`)), 64)
}

// isHeader trata la primera fila como cabecera si las columnas numéricas no
// son números.
func isHeader(rec []string) bool {
	if len(rec) < 2 {
		return false
	}
	_, err := parseFloat(rec[1])
	return err != nil
}
