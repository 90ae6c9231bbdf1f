package services

import (
	"strings"
	"unicode"

	"credit-card-scraper/models"
	"credit-card-scraper/utils"
)

// Eligibility values assumed when the page does not state them.
const (
	DefaultMinCreditScore = 700
	DefaultMinAge         = 21
	DefaultMaxAge         = 60
)

// Normalizer fills every schema default on an extracted record so that
// downstream code never sees a missing list or number.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize mutates rec in place.
func (n *Normalizer) Normalize(rec *models.StructuredCardRecord) {
	rec.Name = normaliseText(rec.Name)
	rec.Bank = normaliseText(rec.Bank)
	rec.Image = strings.TrimSpace(rec.Image)
	rec.Description = normaliseText(rec.Description)
	rec.Benefits = cleanList(rec.Benefits)

	cardType, ok := models.ParseEnum(rec.CardType, models.CardTypes)
	if !ok {
		n.logger.Warn("[normalizer] Unknown card type %q for %q, using %s", rec.CardType, rec.Name, cardType)
	}
	rec.CardType = string(cardType)

	if wb := rec.WelcomeBonus; wb != nil {
		wb.BonusPoints = zeroIfNil(wb.BonusPoints)
		wb.BonusMiles = zeroIfNil(wb.BonusMiles)
		wb.Cashback = zeroIfNil(wb.Cashback)
		if wb.Vouchers == nil {
			wb.Vouchers = []models.Voucher{}
		}
	}

	rw := &rec.Rewards
	rw.BaseRate.PointsPer100INR = zeroIfNil(rw.BaseRate.PointsPer100INR)
	rw.BaseRate.CashbackPercentage = zeroIfNil(rw.BaseRate.CashbackPercentage)
	if rw.BonusCategories == nil {
		rw.BonusCategories = []models.BonusCategory{}
	}
	for i := range rw.BonusCategories {
		bc := &rw.BonusCategories[i]
		bc.PointsPer100INR = zeroIfNil(bc.PointsPer100INR)
		bc.CashbackPercentage = zeroIfNil(bc.CashbackPercentage)
		bc.MonthlyCap = zeroIfNil(bc.MonthlyCap)
		if bc.Notes == nil {
			empty := ""
			bc.Notes = &empty
		}
	}
	if rw.Milestones == nil {
		rw.Milestones = []models.Milestone{}
	}
	for i := range rw.Milestones {
		period, ok := models.ParseEnum(rw.Milestones[i].Period, models.RewardPeriods)
		if !ok {
			n.logger.Warn("[normalizer] Unknown milestone period %q, using %s", rw.Milestones[i].Period, period)
		}
		rw.Milestones[i].Period = string(period)
	}

	rd := &rec.Redemption
	if rd.AirlinePartners == nil {
		rd.AirlinePartners = []models.Partner{}
	}
	if rd.HotelPartners == nil {
		rd.HotelPartners = []models.Partner{}
	}

	rec.TravelBenefits.LoungeAccess.Network = cleanList(rec.TravelBenefits.LoungeAccess.Network)

	el := &rec.EligibilityCriteria
	el.EmploymentTypes = cleanList(el.EmploymentTypes)
	if el.MinCreditScore == 0 {
		el.MinCreditScore = DefaultMinCreditScore
	}
	if el.MinAge == 0 {
		el.MinAge = DefaultMinAge
	}
	if el.MaxAge == 0 {
		el.MaxAge = DefaultMaxAge
	}

	rec.FinePrint.Capping = cleanList(rec.FinePrint.Capping)
	rec.FinePrint.Exclusions = cleanList(rec.FinePrint.Exclusions)
}

func zeroIfNil(v *float64) *float64 {
	if v != nil {
		return v
	}
	var zero float64
	return &zero
}

// cleanList trims entries, drops blanks and never returns nil.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = normaliseText(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
