package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"credit-card-scraper/llm"
	"credit-card-scraper/models"
	"credit-card-scraper/storage"
	"credit-card-scraper/utils"
)

const regaliaJSON = `{
  "id": "",
  "name": "Regalia Gold Credit Card",
  "bank": "HDFC Bank",
  "image": "https://bank.example/img/regalia-gold.png",
  "annualFee": 2500,
  "joiningFee": 2500,
  "feeWaiver": {
    "annualFee": {"isWaiverable": true, "spendThreshold": 400000, "description": "Spend Rs 4 lakh in a year"},
    "joiningFee": {"isWaiverable": false, "condition": ""}
  },
  "cardType": "Premium",
  "benefits": ["Complimentary Club Vistara Silver", "12 lounge visits"],
  "rating": 4.5,
  "description": "Premium travel and lifestyle card",
  "welcomeBonus": {
    "bonusPoints": 2500,
    "bonusMiles": null,
    "cashback": null,
    "vouchers": [{"brand": "Marriott", "value": 2500}],
    "minSpend": 0,
    "timeframeDays": 90,
    "description": "Gift voucher on fee payment"
  },
  "fees": {
    "latePayment": "Rs 100 to Rs 1300",
    "overLimit": "2.5% of over-limit amount",
    "foreignTransactionPercentage": 2,
    "apr": {"purchase": 43.2, "cashAdvance": 43.2},
    "interestFreePeriodDays": 50
  },
  "rewards": {
    "estimatedPointValueINR": 0.5,
    "baseRate": {"pointsPer100INR": 4, "cashbackPercentage": null},
    "bonusCategories": [
      {"category": "Dining", "pointsPer100INR": 20, "cashbackPercentage": 5, "monthlyCap": 5000, "notes": "via SmartBuy"},
      {"category": "Travel", "pointsPer100INR": null, "cashbackPercentage": null, "monthlyCap": null, "notes": null}
    ],
    "milestones": [{"spendThreshold": 150000, "reward": "Rs 1500 voucher", "period": "quarterly"}],
    "pointExpiry": "2 years"
  },
  "redemption": {
    "cashEquivalent": false,
    "productCatalogue": true,
    "flightBooking": true,
    "hotelBooking": true,
    "airlinePartners": [{"name": "Club Vistara", "transferRatio": "1:0.5"}],
    "hotelPartners": []
  },
  "travelBenefits": {
    "loungeAccess": {"domestic": 12, "international": 6, "network": ["Priority Pass", "Visa"]},
    "travelInsurance": {"hasInsurance": true, "coverageAmount": 10000000, "type": "Air accident"},
    "forexMarkup": 2
  },
  "lifestyleBenefits": {
    "dining": {"isAvailable": true, "description": "Swiggy Dineout"},
    "movies": {"isAvailable": false, "description": ""},
    "golf": {"isAvailable": false, "complimentaryRoundsPerMonth": 0, "description": ""},
    "concierge": {"isAvailable": true, "description": "24x7"}
  },
  "eligibilityCriteria": {
    "minIncome": 1200000,
    "minAge": 21,
    "maxAge": 60,
    "employmentTypes": ["Salaried", "Self Employed"],
    "minCreditScore": 750,
    "existingRelationshipRequired": false
  },
  "finePrint": {"capping": ["Max 15000 points per month"], "exclusions": ["Fuel", "Rent"]},
  "lastUpdated": ""
}`

// scriptedCompleter returns errs[i] or responses[i] for call i; the last
// response repeats once the script runs out.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (c *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := len(c.prompts)
	c.prompts = append(c.prompts, prompt)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if len(c.responses) == 0 {
		return "", llm.ErrEmptyResponse
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return c.responses[len(c.responses)-1], nil
}

func (c *scriptedCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

func rateLimited() error {
	return &llm.StatusError{Provider: "gemini", StatusCode: 429, Body: "RESOURCE_EXHAUSTED"}
}

// sleepRecorder records requested waits without sleeping.
type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func newTestExtractor(c llm.Completer, rec *sleepRecorder) *Extractor {
	logger := utils.NewNopLogger()
	opts := DefaultExtractorOptions()
	opts.Sleep = rec.sleep
	return NewExtractor(c, NewNormalizer(logger), opts, logger)
}

// memoryStore is an in-memory storage.CardStore.
type memoryStore struct {
	mu         sync.Mutex
	banks      map[string]*models.Bank
	cards      map[string]*models.CreditCardRecord
	order      []string
	embeddings map[string][]float32
	updates    []*models.CardUpdate
	nextID     int
	failUpdate map[string]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		banks:      make(map[string]*models.Bank),
		cards:      make(map[string]*models.CreditCardRecord),
		embeddings: make(map[string][]float32),
		failUpdate: make(map[string]error),
	}
}

func (m *memoryStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memoryStore) FindBySourceURL(_ context.Context, sourceURL string) (*models.CardRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.Card.SourceURL == sourceURL {
			row := c.Card
			return &row, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memoryStore) FindByName(_ context.Context, name string) (*models.CardRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.Card.Name == name {
			row := c.Card
			return &row, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memoryStore) FindBankByName(_ context.Context, name string) (*models.Bank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.banks[name]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, storage.ErrNotFound
}

func (m *memoryStore) CreateBank(_ context.Context, bank *models.Bank) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.banks[bank.Name]; ok {
		return storage.ErrConflict
	}
	bank.ID = m.id("bank")
	cp := *bank
	m.banks[bank.Name] = &cp
	return nil
}

func (m *memoryStore) bankByID(id string) models.Bank {
	for _, b := range m.banks {
		if b.ID == id {
			return *b
		}
	}
	return models.Bank{}
}

func (m *memoryStore) Get(_ context.Context, id string) (*models.CreditCardRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memoryStore) List(_ context.Context) ([]*models.CreditCardRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.CreditCardRecord, 0, len(m.order))
	for _, id := range m.order {
		cp := *m.cards[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryStore) Create(_ context.Context, rec *models.CreditCardRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.Card.SourceURL == rec.Card.SourceURL || c.Card.Name == rec.Card.Name {
			return "", storage.ErrConflict
		}
	}
	cp := *rec
	cp.Card.ID = m.id("card")
	cp.Bank = m.bankByID(rec.Card.BankID)
	m.cards[cp.Card.ID] = &cp
	m.order = append(m.order, cp.Card.ID)
	return cp.Card.ID, nil
}

func (m *memoryStore) Update(_ context.Context, upd *models.CardUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpdate[upd.ID]; err != nil {
		return err
	}
	c, ok := m.cards[upd.ID]
	if !ok {
		return storage.ErrNotFound
	}
	m.updates = append(m.updates, upd)
	c.Card.Name = upd.Name
	c.Card.Image = upd.Image
	c.Card.AnnualFee = upd.AnnualFee
	c.Card.Description = upd.Description
	c.Card.LastUpdated = upd.LastUpdated
	return nil
}

func (m *memoryStore) SetEmbedding(_ context.Context, id string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[id]; !ok {
		return storage.ErrNotFound
	}
	m.embeddings[id] = embedding
	return nil
}

func (m *memoryStore) Close() error { return nil }

// stubScraper serves canned documents per URL.
type stubScraper struct {
	docs    map[string]*models.CardDocument
	scraped []string
}

func (s *stubScraper) Scrape(_ context.Context, pageURL string) *models.CardDocument {
	s.scraped = append(s.scraped, pageURL)
	if d, ok := s.docs[pageURL]; ok {
		return d
	}
	return &models.CardDocument{SourceURL: pageURL, Status: models.ScrapeError, Message: "website down or unreachable"}
}

func okDocument(pageURL, text, image string) *models.CardDocument {
	return &models.CardDocument{
		SourceURL: pageURL,
		Segments:  []models.Segment{{URL: pageURL, Text: text}},
		ImageURL:  image,
		Status:    models.ScrapeOK,
	}
}

type stubLogos struct {
	logo     string
	resolved []string
}

func (s *stubLogos) Resolve(_ context.Context, bank string) string {
	s.resolved = append(s.resolved, bank)
	return s.logo
}

type stubEmbedder struct {
	dims  int
	err   error
	texts []string
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.texts = append(e.texts, text)
	if e.err != nil {
		return nil, e.err
	}
	return make([]float32, e.dims), nil
}

type recordingArchive struct {
	docs []*models.CardDocument
}

func (a *recordingArchive) WriteDocument(doc *models.CardDocument) error {
	a.docs = append(a.docs, doc)
	return nil
}

func (a *recordingArchive) Close() error { return nil }
