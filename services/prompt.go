package services

import (
	"fmt"
	"strings"
)

// cardSchema is the exact JSON shape the model must return. Keys and enum
// values here must stay in sync with models.StructuredCardRecord.
const cardSchema = `{
  "id": "string",
  "name": "string",
  "bank": "string",
  "image": "string",
  "annualFee": 0,
  "joiningFee": 0,
  "feeWaiver": {
    "annualFee": { "isWaiverable": false, "spendThreshold": 0, "description": "string" },
    "joiningFee": { "isWaiverable": false, "condition": "string" }
  } | null,
  "cardType": "Premium" | "Travel" | "Cashback" | "Business" | "Lifestyle" | "Fuel",
  "benefits": ["string"],
  "rating": 0,
  "description": "string",
  "welcomeBonus": {
    "bonusPoints": 0, "bonusMiles": 0, "cashback": 0,
    "vouchers": [{ "brand": "string", "value": 0 }],
    "minSpend": 0, "timeframeDays": 0, "description": "string"
  } | null,
  "fees": {
    "latePayment": "string", "overLimit": "string", "foreignTransactionPercentage": 0,
    "apr": { "purchase": 0, "cashAdvance": 0 },
    "interestFreePeriodDays": 0
  },
  "rewards": {
    "estimatedPointValueINR": 0,
    "baseRate": { "pointsPer100INR": 0, "cashbackPercentage": 0 },
    "bonusCategories": [{ "category": "string", "pointsPer100INR": 0, "cashbackPercentage": 0, "monthlyCap": 0, "notes": "string" }],
    "milestones": [{ "spendThreshold": 0, "reward": "string", "period": "monthly" | "quarterly" | "annually" }],
    "pointExpiry": "string"
  },
  "redemption": {
    "cashEquivalent": false, "productCatalogue": false, "flightBooking": false, "hotelBooking": false,
    "airlinePartners": [{ "name": "string", "transferRatio": "string" }],
    "hotelPartners": [{ "name": "string", "transferRatio": "string" }]
  },
  "travelBenefits": {
    "loungeAccess": { "domestic": 0, "international": 0, "network": ["Priority Pass" | "Dreamfolks" | "Visa" | "Mastercard" | "Diners Club"] },
    "travelInsurance": { "hasInsurance": false, "coverageAmount": 0, "type": "string" | null },
    "forexMarkup": 0
  },
  "lifestyleBenefits": {
    "dining": { "isAvailable": false, "description": "string" },
    "movies": { "isAvailable": false, "description": "string" },
    "golf": { "isAvailable": false, "complimentaryRoundsPerMonth": 0, "description": "string" },
    "concierge": { "isAvailable": false, "description": "string" }
  },
  "eligibilityCriteria": {
    "minIncome": 0, "minAge": 21, "maxAge": 60,
    "employmentTypes": ["Salaried" | "Self-Employed"],
    "minCreditScore": 700, "existingRelationshipRequired": false
  },
  "finePrint": { "capping": ["string"], "exclusions": ["string"] },
  "lastUpdated": "string"
}`

const defaultsPolicy = `Rules for missing values:
- Every key in the schema must be present. Never omit a key.
- Unknown numbers are 0, unknown strings are "", unknown lists are [].
- feeWaiver and welcomeBonus are null only when the card has no waiver or bonus at all.
- If eligibility is not stated use minCreditScore 700, minAge 21 and maxAge 60.
- Use only the enum values listed in the schema.
- Amounts are in Indian Rupees as plain numbers without currency symbols or commas.`

const outputRule = `Return ONLY the JSON object. No prose, no explanations, no markdown code fences.`

// BuildCreatePrompt asks the model to extract a fresh record from page text.
func BuildCreatePrompt(pageText string) string {
	var b strings.Builder
	b.WriteString("You extract credit card product data. Read the text below, scraped from a bank's ")
	b.WriteString("credit card pages, and produce one JSON object that matches this schema exactly.\n\n")
	fmt.Fprintf(&b, "SCHEMA:\n%s\n\n%s\n\n", cardSchema, defaultsPolicy)
	b.WriteString("Work in order: identify the card name and issuing bank, then the annual and joining fees, ")
	b.WriteString("then rewards, benefits, eligibility and fine print.\n\n")
	fmt.Fprintf(&b, "%s\n\nSCRAPED TEXT:\n---\n%s\n---\n", outputRule, pageText)
	return b.String()
}

// BuildMergePrompt asks the model to merge freshly scraped text into an
// existing record serialized as JSON.
func BuildMergePrompt(existingJSON, pageText string) string {
	var b strings.Builder
	b.WriteString("You maintain credit card product data. You are given the card's current JSON record ")
	b.WriteString("and newly scraped text from its official pages. Merge the new information into the record.\n")
	b.WriteString("- Prefer the newly scraped text whenever it disagrees with the record.\n")
	b.WriteString("- Add values that appear in the new text but are missing from the record.\n")
	b.WriteString("- For values the new text no longer mentions, keep durable facts such as benefits and ")
	b.WriteString("drop time-limited offers.\n")
	b.WriteString("- The result must match the schema exactly, with no extra keys.\n\n")
	fmt.Fprintf(&b, "SCHEMA:\n%s\n\n%s\n\n", cardSchema, defaultsPolicy)
	fmt.Fprintf(&b, "CURRENT RECORD:\n---\n%s\n---\n\nNEWLY SCRAPED TEXT:\n---\n%s\n---\n\n", existingJSON, pageText)
	b.WriteString(outputRule)
	b.WriteString("\n")
	return b.String()
}

// stripCodeFences removes a leading ```json or ``` fence and a trailing ```.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "```json"):
		text = strings.TrimPrefix(text, "```json")
	case strings.HasPrefix(text, "```"):
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
