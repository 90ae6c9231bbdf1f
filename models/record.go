package models

import (
	"time"

	"github.com/lib/pq"
)

// Bank is an issuing bank. Name is unique; Image holds the resolved logo URL.
type Bank struct {
	ID        string    `db:"id"`
	Name      string    `db:"name" validate:"required"`
	Image     string    `db:"image"`
	CreatedAt time.Time `db:"created_at"`
}

// CardRow is the credit_cards table row.
type CardRow struct {
	ID          string         `db:"id"`
	BankID      string         `db:"bank_id" validate:"required"`
	Name        string         `db:"name" validate:"required"`
	SourceURL   string         `db:"source_url" validate:"required,url"`
	Image       string         `db:"image"`
	AnnualFee   float64        `db:"annual_fee"`
	JoiningFee  float64        `db:"joining_fee"`
	CardType    string         `db:"card_type"`
	Benefits    pq.StringArray `db:"benefits"`
	Rating      float64        `db:"rating"`
	Description string         `db:"description"`
	LastUpdated time.Time      `db:"last_updated"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// FeeWaiverRow is the optional one-to-one fee_waivers row.
type FeeWaiverRow struct {
	CardID                  string  `db:"card_id"`
	AnnualFeeIsWaiverable   bool    `db:"annual_fee_is_waiverable"`
	AnnualFeeSpendThreshold float64 `db:"annual_fee_spend_threshold"`
	AnnualFeeDescription    string  `db:"annual_fee_description"`
	JoiningFeeIsWaiverable  bool    `db:"joining_fee_is_waiverable"`
	JoiningFeeCondition     string  `db:"joining_fee_condition"`
}

// WelcomeBonusRow is the optional one-to-one welcome_bonuses row.
type WelcomeBonusRow struct {
	CardID        string   `db:"card_id"`
	BonusPoints   *float64 `db:"bonus_points"`
	BonusMiles    *float64 `db:"bonus_miles"`
	Cashback      *float64 `db:"cashback"`
	MinSpend      float64  `db:"min_spend"`
	TimeframeDays int      `db:"timeframe_days"`
	Description   string   `db:"description"`
}

type VoucherRow struct {
	ID       string  `db:"id"`
	CardID   string  `db:"card_id"`
	Position int     `db:"position"`
	Brand    string  `db:"brand"`
	Value    float64 `db:"value"`
}

type FeesRow struct {
	CardID                       string  `db:"card_id"`
	LatePayment                  string  `db:"late_payment"`
	OverLimit                    string  `db:"over_limit"`
	ForeignTransactionPercentage float64 `db:"foreign_transaction_percentage"`
	InterestFreePeriodDays       int     `db:"interest_free_period_days"`
	APRPurchase                  float64 `db:"apr_purchase"`
	APRCashAdvance               float64 `db:"apr_cash_advance"`
}

type RewardsRow struct {
	CardID                     string   `db:"card_id"`
	EstimatedPointValueINR     float64  `db:"estimated_point_value_inr"`
	BaseRatePointsPer100INR    *float64 `db:"base_rate_points_per_100_inr"`
	BaseRateCashbackPercentage *float64 `db:"base_rate_cashback_percentage"`
	PointExpiry                string   `db:"point_expiry"`
}

type BonusCategoryRow struct {
	ID                 string   `db:"id"`
	CardID             string   `db:"card_id"`
	Position           int      `db:"position"`
	Category           string   `db:"category"`
	PointsPer100INR    *float64 `db:"points_per_100_inr"`
	CashbackPercentage *float64 `db:"cashback_percentage"`
	MonthlyCap         *float64 `db:"monthly_cap"`
	Notes              *string  `db:"notes"`
}

type MilestoneRow struct {
	ID             string  `db:"id"`
	CardID         string  `db:"card_id"`
	Position       int     `db:"position"`
	SpendThreshold float64 `db:"spend_threshold"`
	Reward         string  `db:"reward"`
	Period         string  `db:"period"`
}

type RedemptionRow struct {
	CardID           string `db:"card_id"`
	CashEquivalent   bool   `db:"cash_equivalent"`
	ProductCatalogue bool   `db:"product_catalogue"`
	FlightBooking    bool   `db:"flight_booking"`
	HotelBooking     bool   `db:"hotel_booking"`
}

// PartnerRow is shared by airline_partners and hotel_partners.
type PartnerRow struct {
	ID            string `db:"id"`
	CardID        string `db:"card_id"`
	Position      int    `db:"position"`
	Name          string `db:"name"`
	TransferRatio string `db:"transfer_ratio"`
}

type TravelBenefitsRow struct {
	CardID                        string         `db:"card_id"`
	LoungeAccessDomestic          int            `db:"lounge_access_domestic"`
	LoungeAccessInternational     int            `db:"lounge_access_international"`
	LoungeAccessNetwork           pq.StringArray `db:"lounge_access_network"`
	TravelInsuranceHasInsurance   bool           `db:"travel_insurance_has_insurance"`
	TravelInsuranceCoverageAmount float64        `db:"travel_insurance_coverage_amount"`
	TravelInsuranceType           *string        `db:"travel_insurance_type"`
	ForexMarkup                   float64        `db:"forex_markup"`
}

type LifestyleBenefitsRow struct {
	CardID                          string `db:"card_id"`
	DiningIsAvailable               bool   `db:"dining_is_available"`
	DiningDescription               string `db:"dining_description"`
	MoviesIsAvailable               bool   `db:"movies_is_available"`
	MoviesDescription               string `db:"movies_description"`
	GolfIsAvailable                 bool   `db:"golf_is_available"`
	GolfComplimentaryRoundsPerMonth int    `db:"golf_complimentary_rounds_per_month"`
	GolfDescription                 string `db:"golf_description"`
	ConciergeIsAvailable            bool   `db:"concierge_is_available"`
	ConciergeDescription            string `db:"concierge_description"`
}

type EligibilityCriteriaRow struct {
	CardID                       string         `db:"card_id"`
	MinIncome                    float64        `db:"min_income"`
	MinAge                       int            `db:"min_age"`
	MaxAge                       int            `db:"max_age"`
	EmploymentTypes              pq.StringArray `db:"employment_types"`
	MinCreditScore               int            `db:"min_credit_score"`
	ExistingRelationshipRequired bool           `db:"existing_relationship_required"`
}

type FinePrintRow struct {
	CardID     string         `db:"card_id"`
	Capping    pq.StringArray `db:"capping"`
	Exclusions pq.StringArray `db:"exclusions"`
}

// CardChildren holds every relation hanging off a card. It is shared by the
// create payload, the update payload and a fully loaded record.
type CardChildren struct {
	FeeWaiver         *FeeWaiverRow
	WelcomeBonus      *WelcomeBonusRow
	Vouchers          []VoucherRow
	Fees              FeesRow
	Rewards           RewardsRow
	BonusCategories   []BonusCategoryRow
	Milestones        []MilestoneRow
	Redemption        RedemptionRow
	AirlinePartners   []PartnerRow
	HotelPartners     []PartnerRow
	TravelBenefits    TravelBenefitsRow
	LifestyleBenefits LifestyleBenefitsRow
	Eligibility       EligibilityCriteriaRow
	FinePrint         FinePrintRow
}

// CreditCardRecord is a card with all its relations. On create it is the
// payload (ids assigned by the store); on read the store fills every field
// including Bank.
type CreditCardRecord struct {
	Card CardRow
	Bank Bank    `validate:"-"`
	CardChildren
}

// CardUpdate replaces an existing card's values. One-to-many collections are
// always deleted and recreated. FeeWaiver and WelcomeBonus are upserted when
// non-nil and left untouched when nil; vouchers are replaced only together
// with a welcome bonus.
type CardUpdate struct {
	ID          string  `validate:"required"`
	Name        string  `validate:"required"`
	Image       string
	AnnualFee   float64
	JoiningFee  float64
	CardType    string
	Benefits    pq.StringArray
	Rating      float64
	Description string
	LastUpdated time.Time
	CardChildren
}
