package models

// StructuredCardRecord is the schema-shaped output of LLM extraction. Keys
// mirror the prompt schema exactly and none are omitempty, so a marshaled
// record always carries every field. Pointer members are nullable in the
// schema; everything else is always populated.
type StructuredCardRecord struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	Bank                string              `json:"bank"`
	Image               string              `json:"image"`
	AnnualFee           float64             `json:"annualFee"`
	JoiningFee          float64             `json:"joiningFee"`
	FeeWaiver           *FeeWaiver          `json:"feeWaiver"`
	CardType            string              `json:"cardType"`
	Benefits            []string            `json:"benefits"`
	Rating              float64             `json:"rating"`
	Description         string              `json:"description"`
	WelcomeBonus        *WelcomeBonus       `json:"welcomeBonus"`
	Fees                Fees                `json:"fees"`
	Rewards             Rewards             `json:"rewards"`
	Redemption          Redemption          `json:"redemption"`
	TravelBenefits      TravelBenefits      `json:"travelBenefits"`
	LifestyleBenefits   LifestyleBenefits   `json:"lifestyleBenefits"`
	EligibilityCriteria EligibilityCriteria `json:"eligibilityCriteria"`
	FinePrint           FinePrint           `json:"finePrint"`
	LastUpdated         string              `json:"lastUpdated"`
}

type FeeWaiver struct {
	AnnualFee  AnnualFeeWaiver  `json:"annualFee"`
	JoiningFee JoiningFeeWaiver `json:"joiningFee"`
}

type AnnualFeeWaiver struct {
	IsWaiverable   bool    `json:"isWaiverable"`
	SpendThreshold float64 `json:"spendThreshold"`
	Description    string  `json:"description"`
}

type JoiningFeeWaiver struct {
	IsWaiverable bool   `json:"isWaiverable"`
	Condition    string `json:"condition"`
}

type WelcomeBonus struct {
	BonusPoints   *float64  `json:"bonusPoints"`
	BonusMiles    *float64  `json:"bonusMiles"`
	Cashback      *float64  `json:"cashback"`
	Vouchers      []Voucher `json:"vouchers"`
	MinSpend      float64   `json:"minSpend"`
	TimeframeDays int       `json:"timeframeDays"`
	Description   string    `json:"description"`
}

type Voucher struct {
	Brand string  `json:"brand"`
	Value float64 `json:"value"`
}

type Fees struct {
	LatePayment                  string  `json:"latePayment"`
	OverLimit                    string  `json:"overLimit"`
	ForeignTransactionPercentage float64 `json:"foreignTransactionPercentage"`
	APR                          APR     `json:"apr"`
	InterestFreePeriodDays       int     `json:"interestFreePeriodDays"`
}

type APR struct {
	Purchase    float64 `json:"purchase"`
	CashAdvance float64 `json:"cashAdvance"`
}

type Rewards struct {
	EstimatedPointValueINR float64         `json:"estimatedPointValueINR"`
	BaseRate               BaseRate        `json:"baseRate"`
	BonusCategories        []BonusCategory `json:"bonusCategories"`
	Milestones             []Milestone     `json:"milestones"`
	PointExpiry            string          `json:"pointExpiry"`
}

type BaseRate struct {
	PointsPer100INR    *float64 `json:"pointsPer100INR"`
	CashbackPercentage *float64 `json:"cashbackPercentage"`
}

type BonusCategory struct {
	Category           string   `json:"category"`
	PointsPer100INR    *float64 `json:"pointsPer100INR"`
	CashbackPercentage *float64 `json:"cashbackPercentage"`
	MonthlyCap         *float64 `json:"monthlyCap"`
	Notes              *string  `json:"notes"`
}

type Milestone struct {
	SpendThreshold float64 `json:"spendThreshold"`
	Reward         string  `json:"reward"`
	Period         string  `json:"period"`
}

type Redemption struct {
	CashEquivalent   bool      `json:"cashEquivalent"`
	ProductCatalogue bool      `json:"productCatalogue"`
	FlightBooking    bool      `json:"flightBooking"`
	HotelBooking     bool      `json:"hotelBooking"`
	AirlinePartners  []Partner `json:"airlinePartners"`
	HotelPartners    []Partner `json:"hotelPartners"`
}

type Partner struct {
	Name          string `json:"name"`
	TransferRatio string `json:"transferRatio"`
}

type TravelBenefits struct {
	LoungeAccess    LoungeAccess    `json:"loungeAccess"`
	TravelInsurance TravelInsurance `json:"travelInsurance"`
	ForexMarkup     float64         `json:"forexMarkup"`
}

type LoungeAccess struct {
	Domestic      int      `json:"domestic"`
	International int      `json:"international"`
	Network       []string `json:"network"`
}

type TravelInsurance struct {
	HasInsurance   bool    `json:"hasInsurance"`
	CoverageAmount float64 `json:"coverageAmount"`
	Type           *string `json:"type"`
}

type LifestyleBenefits struct {
	Dining    Perk     `json:"dining"`
	Movies    Perk     `json:"movies"`
	Golf      GolfPerk `json:"golf"`
	Concierge Perk     `json:"concierge"`
}

type Perk struct {
	IsAvailable bool   `json:"isAvailable"`
	Description string `json:"description"`
}

type GolfPerk struct {
	IsAvailable                 bool   `json:"isAvailable"`
	ComplimentaryRoundsPerMonth int    `json:"complimentaryRoundsPerMonth"`
	Description                 string `json:"description"`
}

type EligibilityCriteria struct {
	MinIncome                    float64  `json:"minIncome"`
	MinAge                       int      `json:"minAge"`
	MaxAge                       int      `json:"maxAge"`
	EmploymentTypes              []string `json:"employmentTypes"`
	MinCreditScore               int      `json:"minCreditScore"`
	ExistingRelationshipRequired bool     `json:"existingRelationshipRequired"`
}

type FinePrint struct {
	Capping    []string `json:"capping"`
	Exclusions []string `json:"exclusions"`
}
