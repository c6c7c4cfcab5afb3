package ratesheet

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/aquastack/aquameter/internal/ledger"
)

// RateSheet is the result of parsing a published tariff rate sheet. Rates are
// fixed-point values scaled by ledger.Scale.
type RateSheet struct {
	TariffID    string
	Kind        string
	WasteRate   ledger.FixedPoint
	BaseRate    ledger.FixedPoint
	ExcessRate  ledger.FixedPoint
	Sensitivity ledger.FixedPoint
}

// Structure returns the rate structure the sheet describes.
func (s RateSheet) Structure() (ledger.RateStructure, error) {
	switch s.Kind {
	case ledger.KindUniformBlock:
		return ledger.UniformBlock{BaseRate: s.BaseRate, ExcessRate: s.ExcessRate}, nil
	case ledger.KindSeasonalIncreasing:
		return ledger.SeasonalIncreasing{BaseRate: s.BaseRate, Sensitivity: s.Sensitivity}, nil
	case ledger.KindSeasonalDecreasing:
		return ledger.SeasonalDecreasing{BaseRate: s.BaseRate, Sensitivity: s.Sensitivity}, nil
	default:
		return nil, fmt.Errorf("rate sheet has unknown structure kind %q", s.Kind)
	}
}

// ParseFromPDF opens a tariff rate sheet PDF at the given path, extracts
// text, and delegates to ParseFromText.
func ParseFromPDF(path string) (*RateSheet, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	rc, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	return ParseFromText(buf.String())
}

var (
	tariffIDRe    = regexp.MustCompile(`Tariff(?:\s+ID)?[:\s]+([A-Za-z0-9_-]+)`)
	structureRe   = regexp.MustCompile(`Structure[:\s]+([A-Za-z ]+?)(?:\r?\n|$)`)
	baseRateRe    = regexp.MustCompile(`Base Rate[:\s]*\$?([0-9]+(?:\.[0-9]+)?)\s*(?:per unit)?`)
	excessRateRe  = regexp.MustCompile(`(?:Excess|Second Block) Rate[:\s]*\$?([0-9]+(?:\.[0-9]+)?)\s*(?:per unit)?`)
	sensitivityRe = regexp.MustCompile(`Sensitivity[:\s]*([0-9]+(?:\.[0-9]+)?)`)
	wasteRateRe   = regexp.MustCompile(`Waste(?:water)? Rate[:\s]*\$?([0-9]+(?:\.[0-9]+)?)\s*(?:per unit)?`)
)

// ParseFromText parses the plain-text form of a rate sheet using regex
// heuristics. A sheet must name a structure and a base rate; the remaining
// fields default to zero when absent.
func ParseFromText(text string) (*RateSheet, error) {
	sheet := &RateSheet{}

	if m := tariffIDRe.FindStringSubmatch(text); len(m) == 2 {
		sheet.TariffID = m[1]
	}

	m := structureRe.FindStringSubmatch(text)
	if len(m) != 2 {
		return nil, fmt.Errorf("rate sheet missing structure line")
	}
	kind, err := parseKind(m[1])
	if err != nil {
		return nil, err
	}
	sheet.Kind = kind

	base, ok := parseFirstRate(baseRateRe, text)
	if !ok {
		return nil, fmt.Errorf("rate sheet missing base rate")
	}
	sheet.BaseRate = base

	if v, ok := parseFirstRate(excessRateRe, text); ok {
		sheet.ExcessRate = v
	}
	if v, ok := parseFirstRate(sensitivityRe, text); ok {
		sheet.Sensitivity = v
	}
	if v, ok := parseFirstRate(wasteRateRe, text); ok {
		sheet.WasteRate = v
	}

	if sheet.Kind == ledger.KindUniformBlock && sheet.ExcessRate == 0 {
		return nil, fmt.Errorf("uniform block rate sheet missing excess rate")
	}

	return sheet, nil
}

func parseKind(s string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.Join(strings.Fields(normalized), " ")
	switch normalized {
	case "uniform block", "uniform increasing block", "uniform":
		return ledger.KindUniformBlock, nil
	case "seasonal increasing", "seasonal increasing block":
		return ledger.KindSeasonalIncreasing, nil
	case "seasonal decreasing", "seasonal decreasing block":
		return ledger.KindSeasonalDecreasing, nil
	default:
		return "", fmt.Errorf("unknown rate structure %q", s)
	}
}

// parseFirstRate extracts the first decimal match and converts it to
// fixed-point.
func parseFirstRate(re *regexp.Regexp, text string) (ledger.FixedPoint, bool) {
	m := re.FindStringSubmatch(text)
	if len(m) != 2 {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return ledger.FixedPoint(math.Round(f * ledger.Scale)), true
}
