// Package rateschedule reads versioned statutory rate tables from YAML and writes them
// into the rate tables, closing the versions they supersede.
package rateschedule

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/getAlby/finhub.go/db/models"
	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Schedule is one version of some or all of the rate tables.
// Numbers are kept as strings so they reach decimal.Decimal without a float in between.
type Schedule struct {
	Name                    string          `yaml:"name"`
	TaxYear                 int             `yaml:"tax_year"`
	EffectiveFrom           string          `yaml:"effective_from"`
	EffectiveTo             string          `yaml:"effective_to,omitempty"`
	PayeBands               []Band          `yaml:"paye_bands,omitempty"`
	HealthInsuranceBrackets []Bracket       `yaml:"health_insurance_brackets,omitempty"`
	SocialSecurity          *SocialSecurity `yaml:"social_security,omitempty"`
	HousingLevy             *HousingLevy    `yaml:"housing_levy,omitempty"`
}

type Band struct {
	Order       int    `yaml:"order"`
	Min         string `yaml:"min"`
	Max         string `yaml:"max,omitempty"`
	Rate        string `yaml:"rate"`
	Description string `yaml:"description,omitempty"`
}

type Bracket struct {
	Min          string `yaml:"min"`
	Max          string `yaml:"max,omitempty"`
	Contribution string `yaml:"contribution"`
	Description  string `yaml:"description,omitempty"`
}

type SocialSecurity struct {
	Tier1Limit  string `yaml:"tier1_limit"`
	Tier1Rate   string `yaml:"tier1_rate"`
	Tier2Limit  string `yaml:"tier2_limit"`
	Tier2Rate   string `yaml:"tier2_rate"`
	Description string `yaml:"description,omitempty"`
}

type HousingLevy struct {
	Rate        string `yaml:"rate"`
	Description string `yaml:"description,omitempty"`
}

// Rows is a schedule converted into rate table rows, ready to insert.
type Rows struct {
	EffectiveFrom  time.Time
	EffectiveTo    bun.NullTime
	TaxBands       []models.TaxBand
	Brackets       []models.HealthInsuranceBracket
	SocialSecurity *models.SocialSecurityConfig
	HousingLevy    *models.HousingLevyConfig
}

func Parse(r io.Reader) (*Schedule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Schedule
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, responses.NewValidationError("rate schedule is empty")
		}
		return nil, responses.NewValidationError("parsing rate schedule: %v", err)
	}
	return &s, nil
}

func ParseBytes(data []byte) (*Schedule, error) {
	return Parse(bytes.NewReader(data))
}

func Load(path string) (*Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading rate schedule: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Rows validates the schedule and converts it. Every problem is reported, not just the first.
func (s *Schedule) Rows() (*Rows, error) {
	p := &parser{}
	rows := &Rows{}

	rows.EffectiveFrom = p.date("effective_from", s.EffectiveFrom)
	if s.EffectiveTo != "" {
		to := p.date("effective_to", s.EffectiveTo)
		if !to.IsZero() && to.Before(rows.EffectiveFrom) {
			p.fail("effective_to %s is before effective_from %s", s.EffectiveTo, s.EffectiveFrom)
		}
		rows.EffectiveTo = bun.NullTime{Time: to}
	}
	window := models.Effective{EffectiveFrom: rows.EffectiveFrom, EffectiveTo: rows.EffectiveTo}

	if len(s.PayeBands) == 0 && len(s.HealthInsuranceBrackets) == 0 && s.SocialSecurity == nil && s.HousingLevy == nil {
		p.fail("schedule %q contains no tables", s.Name)
	}

	bands := make([]Band, len(s.PayeBands))
	copy(bands, s.PayeBands)
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].Order < bands[j].Order })

	orders := map[int]bool{}
	for i, b := range bands {
		field := fmt.Sprintf("paye_bands[order=%d]", b.Order)
		if orders[b.Order] {
			p.fail("%s: duplicate order %d", field, b.Order)
		}
		orders[b.Order] = true
		band := models.TaxBand{
			ID:          uuid.New(),
			Effective:   window,
			TaxYear:     s.TaxYear,
			BandOrder:   b.Order,
			MinAmount:   p.amount(field+".min", b.Min),
			MaxAmount:   p.optionalAmount(field+".max", b.Max),
			Rate:        p.rate(field+".rate", b.Rate),
			Description: b.Description,
		}
		if band.MaxAmount.Valid && band.MaxAmount.Decimal.LessThan(band.MinAmount) {
			p.fail("%s: max %s is below min %s", field, b.Max, b.Min)
		}
		if !band.MaxAmount.Valid && i != len(bands)-1 {
			p.fail("%s: only the last band may be unbounded", field)
		}
		rows.TaxBands = append(rows.TaxBands, band)
	}

	for i, b := range s.HealthInsuranceBrackets {
		field := fmt.Sprintf("health_insurance_brackets[%d]", i)
		bracket := models.HealthInsuranceBracket{
			ID:           uuid.New(),
			Effective:    window,
			MinGross:     p.amount(field+".min", b.Min),
			MaxGross:     p.optionalAmount(field+".max", b.Max),
			Contribution: p.amount(field+".contribution", b.Contribution),
			Description:  b.Description,
		}
		if bracket.MaxGross.Valid && bracket.MaxGross.Decimal.LessThan(bracket.MinGross) {
			p.fail("%s: max %s is below min %s", field, b.Max, b.Min)
		}
		rows.Brackets = append(rows.Brackets, bracket)
	}

	if ss := s.SocialSecurity; ss != nil {
		rows.SocialSecurity = &models.SocialSecurityConfig{
			ID:          uuid.New(),
			Effective:   window,
			Tier1Limit:  p.amount("social_security.tier1_limit", ss.Tier1Limit),
			Tier1Rate:   p.rate("social_security.tier1_rate", ss.Tier1Rate),
			Tier2Limit:  p.amount("social_security.tier2_limit", ss.Tier2Limit),
			Tier2Rate:   p.rate("social_security.tier2_rate", ss.Tier2Rate),
			Description: ss.Description,
		}
		if rows.SocialSecurity.Tier2Limit.LessThan(rows.SocialSecurity.Tier1Limit) {
			p.fail("social_security: tier2_limit is below tier1_limit")
		}
	}

	if hl := s.HousingLevy; hl != nil {
		rows.HousingLevy = &models.HousingLevyConfig{
			ID:          uuid.New(),
			Effective:   window,
			Rate:        p.rate("housing_levy.rate", hl.Rate),
			Description: hl.Description,
		}
	}

	if len(p.violations) > 0 {
		return nil, responses.NewValidationErrors(p.violations)
	}
	return rows, nil
}

type parser struct {
	violations []string
}

func (p *parser) fail(format string, args ...interface{}) {
	p.violations = append(p.violations, fmt.Sprintf(format, args...))
}

func (p *parser) date(field, value string) time.Time {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		p.fail("%s: %q is not a YYYY-MM-DD date", field, value)
		return time.Time{}
	}
	return t
}

func (p *parser) amount(field, value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		p.fail("%s: %q is not a number", field, value)
		return decimal.Zero
	}
	if d.IsNegative() {
		p.fail("%s: %s is negative", field, value)
	}
	return d
}

func (p *parser) optionalAmount(field, value string) decimal.NullDecimal {
	if value == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: p.amount(field, value), Valid: true}
}

func (p *parser) rate(field, value string) decimal.Decimal {
	d := p.amount(field, value)
	if d.GreaterThan(decimal.NewFromInt(1)) {
		p.fail("%s: rate %s is above 1", field, value)
	}
	return d
}
