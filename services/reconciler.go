package services

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"

	"credit-card-scraper/models"
	"credit-card-scraper/utils"
)

// Reconciler maps extracted records onto store payloads and back.
type Reconciler struct {
	logger   *utils.Logger
	validate *validator.Validate
}

// NewReconciler creates a Reconciler with the given logger.
func NewReconciler(logger *utils.Logger) *Reconciler {
	return &Reconciler{logger: logger, validate: validator.New()}
}

// ToCreate builds a create payload. imageURL, when non-empty, wins over the
// record's own image.
func (r *Reconciler) ToCreate(rec *models.StructuredCardRecord, bankID, sourceURL, imageURL string) (*models.CreditCardRecord, error) {
	out := &models.CreditCardRecord{
		Card: models.CardRow{
			BankID:      bankID,
			Name:        rec.Name,
			SourceURL:   sourceURL,
			Image:       pickImage(imageURL, rec.Image),
			AnnualFee:   rec.AnnualFee,
			JoiningFee:  rec.JoiningFee,
			CardType:    rec.CardType,
			Benefits:    stringArray(rec.Benefits),
			Rating:      rec.Rating,
			Description: rec.Description,
			LastUpdated: r.parseLastUpdated(rec.LastUpdated),
		},
		CardChildren: r.children(rec),
	}

	if err := r.validate.Struct(out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return out, nil
}

// ToUpdate builds a replace-style update payload for the card with id.
func (r *Reconciler) ToUpdate(id string, rec *models.StructuredCardRecord, imageURL string) (*models.CardUpdate, error) {
	out := &models.CardUpdate{
		ID:           id,
		Name:         rec.Name,
		Image:        pickImage(imageURL, rec.Image),
		AnnualFee:    rec.AnnualFee,
		JoiningFee:   rec.JoiningFee,
		CardType:     rec.CardType,
		Benefits:     stringArray(rec.Benefits),
		Rating:       rec.Rating,
		Description:  rec.Description,
		LastUpdated:  r.parseLastUpdated(rec.LastUpdated),
		CardChildren: r.children(rec),
	}

	if err := r.validate.Struct(out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return out, nil
}

// FromRecord reconstructs the extraction-shaped view of a stored card. The
// bank name is left blank; stored NULLs come back as nil.
func (r *Reconciler) FromRecord(c *models.CreditCardRecord) *models.StructuredCardRecord {
	out := &models.StructuredCardRecord{
		ID:          c.Card.ID,
		Name:        c.Card.Name,
		Image:       c.Card.Image,
		AnnualFee:   c.Card.AnnualFee,
		JoiningFee:  c.Card.JoiningFee,
		CardType:    c.Card.CardType,
		Benefits:    stringSlice(c.Card.Benefits),
		Rating:      c.Card.Rating,
		Description: c.Card.Description,
	}
	if !c.Card.LastUpdated.IsZero() {
		out.LastUpdated = c.Card.LastUpdated.UTC().Format(time.RFC3339Nano)
	}

	if fw := c.FeeWaiver; fw != nil {
		out.FeeWaiver = &models.FeeWaiver{
			AnnualFee: models.AnnualFeeWaiver{
				IsWaiverable:   fw.AnnualFeeIsWaiverable,
				SpendThreshold: fw.AnnualFeeSpendThreshold,
				Description:    fw.AnnualFeeDescription,
			},
			JoiningFee: models.JoiningFeeWaiver{
				IsWaiverable: fw.JoiningFeeIsWaiverable,
				Condition:    fw.JoiningFeeCondition,
			},
		}
	}

	if wb := c.WelcomeBonus; wb != nil {
		vouchers := make([]models.Voucher, 0, len(c.Vouchers))
		for _, v := range c.Vouchers {
			vouchers = append(vouchers, models.Voucher{Brand: v.Brand, Value: v.Value})
		}
		out.WelcomeBonus = &models.WelcomeBonus{
			BonusPoints:   wb.BonusPoints,
			BonusMiles:    wb.BonusMiles,
			Cashback:      wb.Cashback,
			Vouchers:      vouchers,
			MinSpend:      wb.MinSpend,
			TimeframeDays: wb.TimeframeDays,
			Description:   wb.Description,
		}
	}

	out.Fees = models.Fees{
		LatePayment:                  c.Fees.LatePayment,
		OverLimit:                    c.Fees.OverLimit,
		ForeignTransactionPercentage: c.Fees.ForeignTransactionPercentage,
		APR: models.APR{
			Purchase:    c.Fees.APRPurchase,
			CashAdvance: c.Fees.APRCashAdvance,
		},
		InterestFreePeriodDays: c.Fees.InterestFreePeriodDays,
	}

	bonus := make([]models.BonusCategory, 0, len(c.BonusCategories))
	for _, b := range c.BonusCategories {
		bonus = append(bonus, models.BonusCategory{
			Category:           b.Category,
			PointsPer100INR:    b.PointsPer100INR,
			CashbackPercentage: b.CashbackPercentage,
			MonthlyCap:         b.MonthlyCap,
			Notes:              b.Notes,
		})
	}
	milestones := make([]models.Milestone, 0, len(c.Milestones))
	for _, m := range c.Milestones {
		milestones = append(milestones, models.Milestone{
			SpendThreshold: m.SpendThreshold,
			Reward:         m.Reward,
			Period:         m.Period,
		})
	}
	out.Rewards = models.Rewards{
		EstimatedPointValueINR: c.Rewards.EstimatedPointValueINR,
		BaseRate: models.BaseRate{
			PointsPer100INR:    c.Rewards.BaseRatePointsPer100INR,
			CashbackPercentage: c.Rewards.BaseRateCashbackPercentage,
		},
		BonusCategories: bonus,
		Milestones:      milestones,
		PointExpiry:     c.Rewards.PointExpiry,
	}

	out.Redemption = models.Redemption{
		CashEquivalent:   c.Redemption.CashEquivalent,
		ProductCatalogue: c.Redemption.ProductCatalogue,
		FlightBooking:    c.Redemption.FlightBooking,
		HotelBooking:     c.Redemption.HotelBooking,
		AirlinePartners:  partnersFromRows(c.AirlinePartners),
		HotelPartners:    partnersFromRows(c.HotelPartners),
	}

	tb := c.TravelBenefits
	out.TravelBenefits = models.TravelBenefits{
		LoungeAccess: models.LoungeAccess{
			Domestic:      tb.LoungeAccessDomestic,
			International: tb.LoungeAccessInternational,
			Network:       displayTokens(tb.LoungeAccessNetwork),
		},
		TravelInsurance: models.TravelInsurance{
			HasInsurance:   tb.TravelInsuranceHasInsurance,
			CoverageAmount: tb.TravelInsuranceCoverageAmount,
			Type:           tb.TravelInsuranceType,
		},
		ForexMarkup: tb.ForexMarkup,
	}

	lb := c.LifestyleBenefits
	out.LifestyleBenefits = models.LifestyleBenefits{
		Dining: models.Perk{IsAvailable: lb.DiningIsAvailable, Description: lb.DiningDescription},
		Movies: models.Perk{IsAvailable: lb.MoviesIsAvailable, Description: lb.MoviesDescription},
		Golf: models.GolfPerk{
			IsAvailable:                 lb.GolfIsAvailable,
			ComplimentaryRoundsPerMonth: lb.GolfComplimentaryRoundsPerMonth,
			Description:                 lb.GolfDescription,
		},
		Concierge: models.Perk{IsAvailable: lb.ConciergeIsAvailable, Description: lb.ConciergeDescription},
	}

	el := c.Eligibility
	out.EligibilityCriteria = models.EligibilityCriteria{
		MinIncome:                    el.MinIncome,
		MinAge:                       el.MinAge,
		MaxAge:                       el.MaxAge,
		EmploymentTypes:              displayTokens(el.EmploymentTypes),
		MinCreditScore:               el.MinCreditScore,
		ExistingRelationshipRequired: el.ExistingRelationshipRequired,
	}

	out.FinePrint = models.FinePrint{
		Capping:    stringSlice(c.FinePrint.Capping),
		Exclusions: stringSlice(c.FinePrint.Exclusions),
	}
	return out
}

// children maps every nested section. Row ids and card ids are left for
// the store to assign; Position preserves list order.
func (r *Reconciler) children(rec *models.StructuredCardRecord) models.CardChildren {
	var ch models.CardChildren

	if fw := rec.FeeWaiver; fw != nil {
		ch.FeeWaiver = &models.FeeWaiverRow{
			AnnualFeeIsWaiverable:   fw.AnnualFee.IsWaiverable,
			AnnualFeeSpendThreshold: fw.AnnualFee.SpendThreshold,
			AnnualFeeDescription:    fw.AnnualFee.Description,
			JoiningFeeIsWaiverable:  fw.JoiningFee.IsWaiverable,
			JoiningFeeCondition:     fw.JoiningFee.Condition,
		}
	}

	if wb := rec.WelcomeBonus; wb != nil {
		ch.WelcomeBonus = &models.WelcomeBonusRow{
			BonusPoints:   wb.BonusPoints,
			BonusMiles:    wb.BonusMiles,
			Cashback:      wb.Cashback,
			MinSpend:      wb.MinSpend,
			TimeframeDays: wb.TimeframeDays,
			Description:   wb.Description,
		}
		ch.Vouchers = make([]models.VoucherRow, 0, len(wb.Vouchers))
		for i, v := range wb.Vouchers {
			ch.Vouchers = append(ch.Vouchers, models.VoucherRow{Position: i, Brand: v.Brand, Value: v.Value})
		}
	}

	ch.Fees = models.FeesRow{
		LatePayment:                  rec.Fees.LatePayment,
		OverLimit:                    rec.Fees.OverLimit,
		ForeignTransactionPercentage: rec.Fees.ForeignTransactionPercentage,
		InterestFreePeriodDays:       rec.Fees.InterestFreePeriodDays,
		APRPurchase:                  rec.Fees.APR.Purchase,
		APRCashAdvance:               rec.Fees.APR.CashAdvance,
	}

	ch.Rewards = models.RewardsRow{
		EstimatedPointValueINR:     rec.Rewards.EstimatedPointValueINR,
		BaseRatePointsPer100INR:    rec.Rewards.BaseRate.PointsPer100INR,
		BaseRateCashbackPercentage: rec.Rewards.BaseRate.CashbackPercentage,
		PointExpiry:                rec.Rewards.PointExpiry,
	}
	ch.BonusCategories = make([]models.BonusCategoryRow, 0, len(rec.Rewards.BonusCategories))
	for i, b := range rec.Rewards.BonusCategories {
		ch.BonusCategories = append(ch.BonusCategories, models.BonusCategoryRow{
			Position:           i,
			Category:           b.Category,
			PointsPer100INR:    b.PointsPer100INR,
			CashbackPercentage: b.CashbackPercentage,
			MonthlyCap:         b.MonthlyCap,
			Notes:              b.Notes,
		})
	}
	ch.Milestones = make([]models.MilestoneRow, 0, len(rec.Rewards.Milestones))
	for i, m := range rec.Rewards.Milestones {
		ch.Milestones = append(ch.Milestones, models.MilestoneRow{
			Position:       i,
			SpendThreshold: m.SpendThreshold,
			Reward:         m.Reward,
			Period:         m.Period,
		})
	}

	ch.Redemption = models.RedemptionRow{
		CashEquivalent:   rec.Redemption.CashEquivalent,
		ProductCatalogue: rec.Redemption.ProductCatalogue,
		FlightBooking:    rec.Redemption.FlightBooking,
		HotelBooking:     rec.Redemption.HotelBooking,
	}
	ch.AirlinePartners = partnerRows(rec.Redemption.AirlinePartners)
	ch.HotelPartners = partnerRows(rec.Redemption.HotelPartners)

	tb := rec.TravelBenefits
	ch.TravelBenefits = models.TravelBenefitsRow{
		LoungeAccessDomestic:          tb.LoungeAccess.Domestic,
		LoungeAccessInternational:     tb.LoungeAccess.International,
		LoungeAccessNetwork:           mapTokens(r, "lounge network", tb.LoungeAccess.Network, models.LoungeNetworks),
		TravelInsuranceHasInsurance:   tb.TravelInsurance.HasInsurance,
		TravelInsuranceCoverageAmount: tb.TravelInsurance.CoverageAmount,
		TravelInsuranceType:           tb.TravelInsurance.Type,
		ForexMarkup:                   tb.ForexMarkup,
	}

	lb := rec.LifestyleBenefits
	ch.LifestyleBenefits = models.LifestyleBenefitsRow{
		DiningIsAvailable:               lb.Dining.IsAvailable,
		DiningDescription:               lb.Dining.Description,
		MoviesIsAvailable:               lb.Movies.IsAvailable,
		MoviesDescription:               lb.Movies.Description,
		GolfIsAvailable:                 lb.Golf.IsAvailable,
		GolfComplimentaryRoundsPerMonth: lb.Golf.ComplimentaryRoundsPerMonth,
		GolfDescription:                 lb.Golf.Description,
		ConciergeIsAvailable:            lb.Concierge.IsAvailable,
		ConciergeDescription:            lb.Concierge.Description,
	}

	el := rec.EligibilityCriteria
	ch.Eligibility = models.EligibilityCriteriaRow{
		MinIncome:                    el.MinIncome,
		MinAge:                       el.MinAge,
		MaxAge:                       el.MaxAge,
		EmploymentTypes:              mapTokens(r, "employment type", el.EmploymentTypes, models.EmploymentTypes),
		MinCreditScore:               el.MinCreditScore,
		ExistingRelationshipRequired: el.ExistingRelationshipRequired,
	}

	ch.FinePrint = models.FinePrintRow{
		Capping:    stringArray(rec.FinePrint.Capping),
		Exclusions: stringArray(rec.FinePrint.Exclusions),
	}
	return ch
}

// mapTokens converts display values to enum tokens, falling back to the
// enum's first member with a warning.
func mapTokens[T ~string](r *Reconciler, kind string, values []string, members []T) pq.StringArray {
	out := make(pq.StringArray, 0, len(values))
	for _, v := range values {
		token, ok := models.ParseEnum(v, members)
		if !ok {
			r.logger.Warn("[reconciler] Unknown %s %q, falling back to %s", kind, v, token)
		}
		out = append(out, string(token))
	}
	return out
}

func displayTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, models.EnumDisplay(t))
	}
	return out
}

func partnerRows(in []models.Partner) []models.PartnerRow {
	out := make([]models.PartnerRow, 0, len(in))
	for i, p := range in {
		out = append(out, models.PartnerRow{Position: i, Name: p.Name, TransferRatio: p.TransferRatio})
	}
	return out
}

func partnersFromRows(in []models.PartnerRow) []models.Partner {
	out := make([]models.Partner, 0, len(in))
	for _, p := range in {
		out = append(out, models.Partner{Name: p.Name, TransferRatio: p.TransferRatio})
	}
	return out
}

func (r *Reconciler) parseLastUpdated(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		r.logger.Warn("[reconciler] Ignoring unparseable lastUpdated %q", s)
		return time.Time{}
	}
	return t.UTC()
}

func pickImage(scraped, extracted string) string {
	if scraped != "" {
		return scraped
	}
	return extracted
}

func stringArray(in []string) pq.StringArray {
	out := make(pq.StringArray, len(in))
	copy(out, in)
	return out
}

func stringSlice(in pq.StringArray) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ValidateBank checks a bank before it is created.
func (r *Reconciler) ValidateBank(bank *models.Bank) error {
	if err := r.validate.Struct(bank); err != nil {
		return fmt.Errorf("%w: bank: %v", ErrInvalidRecord, err)
	}
	return nil
}
