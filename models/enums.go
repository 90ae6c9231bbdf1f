package models

import "strings"

// CardType is the product category of a card.
type CardType string

const (
	CardTypePremium   CardType = "Premium"
	CardTypeTravel    CardType = "Travel"
	CardTypeCashback  CardType = "Cashback"
	CardTypeBusiness  CardType = "Business"
	CardTypeLifestyle CardType = "Lifestyle"
	CardTypeFuel      CardType = "Fuel"
)

// CardTypes lists every CardType; the first member is the fallback.
var CardTypes = []CardType{
	CardTypePremium, CardTypeTravel, CardTypeCashback,
	CardTypeBusiness, CardTypeLifestyle, CardTypeFuel,
}

// LoungeNetwork is an airport-lounge programme token as stored.
type LoungeNetwork string

const (
	LoungeNetworkPriorityPass LoungeNetwork = "Priority_Pass"
	LoungeNetworkDreamfolks   LoungeNetwork = "Dreamfolks"
	LoungeNetworkVisa         LoungeNetwork = "Visa"
	LoungeNetworkMastercard   LoungeNetwork = "Mastercard"
	LoungeNetworkDinersClub   LoungeNetwork = "Diners_Club"
)

// LoungeNetworks lists every LoungeNetwork; the first member is the fallback.
var LoungeNetworks = []LoungeNetwork{
	LoungeNetworkPriorityPass, LoungeNetworkDreamfolks, LoungeNetworkVisa,
	LoungeNetworkMastercard, LoungeNetworkDinersClub,
}

// EmploymentType is an eligible employment category token as stored.
type EmploymentType string

const (
	EmploymentSalaried     EmploymentType = "Salaried"
	EmploymentSelfEmployed EmploymentType = "Self_Employed"
)

// EmploymentTypes lists every EmploymentType; the first member is the fallback.
var EmploymentTypes = []EmploymentType{EmploymentSalaried, EmploymentSelfEmployed}

// RewardPeriod is the window a milestone spend threshold applies to.
type RewardPeriod string

const (
	RewardPeriodMonthly   RewardPeriod = "monthly"
	RewardPeriodQuarterly RewardPeriod = "quarterly"
	RewardPeriodAnnually  RewardPeriod = "annually"
)

// RewardPeriods lists every RewardPeriod; the first member is the fallback.
var RewardPeriods = []RewardPeriod{RewardPeriodMonthly, RewardPeriodQuarterly, RewardPeriodAnnually}

// ParseEnum maps a free-form display value onto one of members. Spaces and
// hyphens become underscores and the comparison ignores case. When nothing
// matches, the first member is returned with ok=false.
func ParseEnum[T ~string](value string, members []T) (token T, ok bool) {
	key := EnumKey(value)
	for _, m := range members {
		if strings.EqualFold(string(m), key) {
			return m, true
		}
	}
	if len(members) == 0 {
		return token, false
	}
	return members[0], false
}

// EnumKey converts a display value ("Priority Pass") to token form ("Priority_Pass").
func EnumKey(value string) string {
	key := strings.TrimSpace(value)
	key = strings.ReplaceAll(key, " ", "_")
	return strings.ReplaceAll(key, "-", "_")
}

// EnumDisplay converts a stored token ("Diners_Club") to display form ("Diners Club").
func EnumDisplay[T ~string](token T) string {
	return strings.ReplaceAll(string(token), "_", " ")
}
