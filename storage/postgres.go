package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"credit-card-scraper/models"
	"credit-card-scraper/utils"
)

const uniqueViolation = "23505"

var (
	bankStruct         = sqlbuilder.NewStruct(new(models.Bank)).For(sqlbuilder.PostgreSQL)
	cardStruct         = sqlbuilder.NewStruct(new(models.CardRow)).For(sqlbuilder.PostgreSQL)
	feeWaiverStruct    = sqlbuilder.NewStruct(new(models.FeeWaiverRow)).For(sqlbuilder.PostgreSQL)
	welcomeBonusStruct = sqlbuilder.NewStruct(new(models.WelcomeBonusRow)).For(sqlbuilder.PostgreSQL)
	voucherStruct      = sqlbuilder.NewStruct(new(models.VoucherRow)).For(sqlbuilder.PostgreSQL)
	feesStruct         = sqlbuilder.NewStruct(new(models.FeesRow)).For(sqlbuilder.PostgreSQL)
	rewardsStruct      = sqlbuilder.NewStruct(new(models.RewardsRow)).For(sqlbuilder.PostgreSQL)
	bonusStruct        = sqlbuilder.NewStruct(new(models.BonusCategoryRow)).For(sqlbuilder.PostgreSQL)
	milestoneStruct    = sqlbuilder.NewStruct(new(models.MilestoneRow)).For(sqlbuilder.PostgreSQL)
	redemptionStruct   = sqlbuilder.NewStruct(new(models.RedemptionRow)).For(sqlbuilder.PostgreSQL)
	partnerStruct      = sqlbuilder.NewStruct(new(models.PartnerRow)).For(sqlbuilder.PostgreSQL)
	travelStruct       = sqlbuilder.NewStruct(new(models.TravelBenefitsRow)).For(sqlbuilder.PostgreSQL)
	lifestyleStruct    = sqlbuilder.NewStruct(new(models.LifestyleBenefitsRow)).For(sqlbuilder.PostgreSQL)
	eligibilityStruct  = sqlbuilder.NewStruct(new(models.EligibilityCriteriaRow)).For(sqlbuilder.PostgreSQL)
	finePrintStruct    = sqlbuilder.NewStruct(new(models.FinePrintRow)).For(sqlbuilder.PostgreSQL)
)

// PostgresStore persists credit cards and their relations to PostgreSQL.
type PostgresStore struct {
	db     *sqlx.DB
	logger *utils.Logger
	now    func() time.Time
	newID  func() string
}

// NewPostgresStore opens a connection to PostgreSQL, waits for it to accept
// connections, applies schema migrations and returns a ready store.
func NewPostgresStore(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.Warn("[postgres] Database not ready (attempt %d/10): %v", i+1, err)
		if serr := utils.Sleep(ctx, 2*time.Second); serr != nil {
			err = serr
			break
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	version, dirty, err := RunMigrations(db.DB)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	logger.Info("[postgres] Schema at version %d (dirty=%t)", version, dirty)

	return NewPostgresStoreWithDB(db, logger), nil
}

// NewPostgresStoreWithDB wraps an existing connection without migrating it.
func NewPostgresStoreWithDB(db *sqlx.DB, logger *utils.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// FindBySourceURL returns the card scraped from sourceURL or ErrNotFound.
func (s *PostgresStore) FindBySourceURL(ctx context.Context, sourceURL string) (*models.CardRow, error) {
	return s.findCard(ctx, "source_url", sourceURL)
}

// FindByName returns the card with the given name or ErrNotFound.
func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.CardRow, error) {
	return s.findCard(ctx, "name", name)
}

func (s *PostgresStore) findCard(ctx context.Context, column, value string) (*models.CardRow, error) {
	sb := cardStruct.SelectFrom("credit_cards")
	sb.Where(sb.Equal(column, value))
	query, args := sb.Build()

	var row models.CardRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres: find card by %s: %w", column, err)
	}
	return &row, nil
}

// FindBankByName returns the bank with the given name or ErrNotFound.
func (s *PostgresStore) FindBankByName(ctx context.Context, name string) (*models.Bank, error) {
	return s.findBank(ctx, s.db, "name", name)
}

func (s *PostgresStore) findBank(ctx context.Context, q sqlx.QueryerContext, column, value string) (*models.Bank, error) {
	sb := bankStruct.SelectFrom("banks")
	sb.Where(sb.Equal(column, value))
	query, args := sb.Build()

	var bank models.Bank
	if err := sqlx.GetContext(ctx, q, &bank, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres: find bank by %s: %w", column, err)
	}
	return &bank, nil
}

// CreateBank inserts bank, assigning its ID and CreatedAt.
func (s *PostgresStore) CreateBank(ctx context.Context, bank *models.Bank) error {
	bank.ID = s.newID()
	bank.CreatedAt = s.now().UTC()

	query, args := bankStruct.InsertInto("banks", bank).Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return writeErr("banks", err)
	}
	s.logger.Info("[postgres] Created bank %s (%s)", bank.Name, bank.ID)
	return nil
}

// Get loads one card with every relation or returns ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (*models.CreditCardRecord, error) {
	row, err := s.findCard(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, row, nil)
}

// List loads every card with its relations, oldest first.
func (s *PostgresStore) List(ctx context.Context) ([]*models.CreditCardRecord, error) {
	sb := cardStruct.SelectFrom("credit_cards")
	sb.OrderBy("created_at").Asc()
	query, args := sb.Build()

	var rows []models.CardRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("postgres: list cards: %w", err)
	}

	banks := make(map[string]*models.Bank)
	records := make([]*models.CreditCardRecord, 0, len(rows))
	for i := range rows {
		rec, err := s.load(ctx, &rows[i], banks)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *PostgresStore) load(ctx context.Context, row *models.CardRow, banks map[string]*models.Bank) (*models.CreditCardRecord, error) {
	rec := &models.CreditCardRecord{Card: *row}

	bank, cached := banks[row.BankID]
	if !cached {
		var err error
		bank, err = s.findBank(ctx, s.db, "id", row.BankID)
		if err != nil {
			return nil, fmt.Errorf("postgres: bank of card %s: %w", row.ID, err)
		}
		if banks != nil {
			banks[row.BankID] = bank
		}
	}
	rec.Bank = *bank

	if err := loadChildren(ctx, s.db, row.ID, &rec.CardChildren); err != nil {
		return nil, fmt.Errorf("postgres: relations of card %s: %w", row.ID, err)
	}
	return rec, nil
}

func loadChildren(ctx context.Context, q sqlx.QueryerContext, cardID string, c *models.CardChildren) error {
	var fw models.FeeWaiverRow
	found, err := getByCard(ctx, q, feeWaiverStruct, "fee_waivers", cardID, &fw)
	if err != nil {
		return err
	}
	if found {
		c.FeeWaiver = &fw
	}

	var wb models.WelcomeBonusRow
	found, err = getByCard(ctx, q, welcomeBonusStruct, "welcome_bonuses", cardID, &wb)
	if err != nil {
		return err
	}
	if found {
		c.WelcomeBonus = &wb
		c.Vouchers = []models.VoucherRow{}
		if err := selectByCard(ctx, q, voucherStruct, "vouchers", cardID, &c.Vouchers); err != nil {
			return err
		}
	}

	if _, err := getByCard(ctx, q, feesStruct, "fees", cardID, &c.Fees); err != nil {
		return err
	}
	if _, err := getByCard(ctx, q, rewardsStruct, "rewards", cardID, &c.Rewards); err != nil {
		return err
	}

	c.BonusCategories = []models.BonusCategoryRow{}
	if err := selectByCard(ctx, q, bonusStruct, "bonus_categories", cardID, &c.BonusCategories); err != nil {
		return err
	}
	c.Milestones = []models.MilestoneRow{}
	if err := selectByCard(ctx, q, milestoneStruct, "milestones", cardID, &c.Milestones); err != nil {
		return err
	}

	if _, err := getByCard(ctx, q, redemptionStruct, "redemptions", cardID, &c.Redemption); err != nil {
		return err
	}
	c.AirlinePartners = []models.PartnerRow{}
	if err := selectByCard(ctx, q, partnerStruct, "airline_partners", cardID, &c.AirlinePartners); err != nil {
		return err
	}
	c.HotelPartners = []models.PartnerRow{}
	if err := selectByCard(ctx, q, partnerStruct, "hotel_partners", cardID, &c.HotelPartners); err != nil {
		return err
	}

	if _, err := getByCard(ctx, q, travelStruct, "travel_benefits", cardID, &c.TravelBenefits); err != nil {
		return err
	}
	if _, err := getByCard(ctx, q, lifestyleStruct, "lifestyle_benefits", cardID, &c.LifestyleBenefits); err != nil {
		return err
	}
	if _, err := getByCard(ctx, q, eligibilityStruct, "eligibility_criteria", cardID, &c.Eligibility); err != nil {
		return err
	}
	_, err = getByCard(ctx, q, finePrintStruct, "fine_prints", cardID, &c.FinePrint)
	return err
}

// getByCard loads a one-to-one row. A missing row is not an error.
func getByCard(ctx context.Context, q sqlx.QueryerContext, st *sqlbuilder.Struct, table, cardID string, dest any) (bool, error) {
	sb := st.SelectFrom(table)
	sb.Where(sb.Equal("card_id", cardID))
	query, args := sb.Build()

	if err := sqlx.GetContext(ctx, q, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("load %s: %w", table, err)
	}
	return true, nil
}

func selectByCard(ctx context.Context, q sqlx.QueryerContext, st *sqlbuilder.Struct, table, cardID string, dest any) error {
	sb := st.SelectFrom(table)
	sb.Where(sb.Equal("card_id", cardID)).OrderBy("position").Asc()
	query, args := sb.Build()

	if err := sqlx.SelectContext(ctx, q, dest, query, args...); err != nil {
		return fmt.Errorf("load %s: %w", table, err)
	}
	return nil
}

// Create inserts the card row and every child row in one transaction.
func (s *PostgresStore) Create(ctx context.Context, rec *models.CreditCardRecord) (string, error) {
	now := s.now().UTC()
	card := rec.Card
	card.ID = s.newID()
	card.CreatedAt = now
	card.UpdatedAt = now
	if card.LastUpdated.IsZero() {
		card.LastUpdated = now
	}
	if card.Benefits == nil {
		card.Benefits = pq.StringArray{}
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args := cardStruct.InsertInto("credit_cards", &card).Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return writeErr("credit_cards", err)
		}
		return s.writeChildren(ctx, tx, card.ID, &rec.CardChildren, false)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("[postgres] Created card %q (%s)", card.Name, card.ID)
	return card.ID, nil
}

// Update overwrites the card row, upserts one-to-one relations and
// recreates the one-to-many collections in one transaction.
func (s *PostgresStore) Update(ctx context.Context, upd *models.CardUpdate) error {
	benefits := upd.Benefits
	if benefits == nil {
		benefits = pq.StringArray{}
	}
	lastUpdated := upd.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = s.now().UTC()
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		ub.Update("credit_cards").
			Set(
				ub.Assign("name", upd.Name),
				ub.Assign("image", upd.Image),
				ub.Assign("annual_fee", upd.AnnualFee),
				ub.Assign("joining_fee", upd.JoiningFee),
				ub.Assign("card_type", upd.CardType),
				ub.Assign("benefits", benefits),
				ub.Assign("rating", upd.Rating),
				ub.Assign("description", upd.Description),
				ub.Assign("last_updated", lastUpdated),
				ub.Assign("updated_at", s.now().UTC()),
			).
			Where(ub.Equal("id", upd.ID))
		query, args := ub.Build()

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return writeErr("credit_cards", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("postgres: rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return s.writeChildren(ctx, tx, upd.ID, &upd.CardChildren, true)
	})
	if err != nil {
		return err
	}

	s.logger.Info("[postgres] Updated card %q (%s)", upd.Name, upd.ID)
	return nil
}

// writeChildren upserts one-to-one rows and inserts collections. When replace
// is set the existing collections are deleted first.
func (s *PostgresStore) writeChildren(ctx context.Context, tx *sqlx.Tx, cardID string, c *models.CardChildren, replace bool) error {
	if c.FeeWaiver != nil {
		fw := *c.FeeWaiver
		fw.CardID = cardID
		if err := upsertRow(ctx, tx, feeWaiverStruct, "fee_waivers", &fw); err != nil {
			return err
		}
	}

	if c.WelcomeBonus != nil {
		wb := *c.WelcomeBonus
		wb.CardID = cardID
		if err := upsertRow(ctx, tx, welcomeBonusStruct, "welcome_bonuses", &wb); err != nil {
			return err
		}
		vouchers := make([]models.VoucherRow, len(c.Vouchers))
		for i, v := range c.Vouchers {
			v.ID, v.CardID = s.newID(), cardID
			vouchers[i] = v
		}
		if err := replaceRows(ctx, tx, voucherStruct, "vouchers", cardID, replace, rowPtrs(vouchers)); err != nil {
			return err
		}
	}

	fees := c.Fees
	fees.CardID = cardID
	if err := upsertRow(ctx, tx, feesStruct, "fees", &fees); err != nil {
		return err
	}
	rewards := c.Rewards
	rewards.CardID = cardID
	if err := upsertRow(ctx, tx, rewardsStruct, "rewards", &rewards); err != nil {
		return err
	}

	bonuses := make([]models.BonusCategoryRow, len(c.BonusCategories))
	for i, b := range c.BonusCategories {
		b.ID, b.CardID = s.newID(), cardID
		bonuses[i] = b
	}
	if err := replaceRows(ctx, tx, bonusStruct, "bonus_categories", cardID, replace, rowPtrs(bonuses)); err != nil {
		return err
	}

	milestones := make([]models.MilestoneRow, len(c.Milestones))
	for i, m := range c.Milestones {
		m.ID, m.CardID = s.newID(), cardID
		milestones[i] = m
	}
	if err := replaceRows(ctx, tx, milestoneStruct, "milestones", cardID, replace, rowPtrs(milestones)); err != nil {
		return err
	}

	redemption := c.Redemption
	redemption.CardID = cardID
	if err := upsertRow(ctx, tx, redemptionStruct, "redemptions", &redemption); err != nil {
		return err
	}
	if err := replaceRows(ctx, tx, partnerStruct, "airline_partners", cardID, replace, rowPtrs(s.stampPartners(cardID, c.AirlinePartners))); err != nil {
		return err
	}
	if err := replaceRows(ctx, tx, partnerStruct, "hotel_partners", cardID, replace, rowPtrs(s.stampPartners(cardID, c.HotelPartners))); err != nil {
		return err
	}

	travel := c.TravelBenefits
	travel.CardID = cardID
	if travel.LoungeAccessNetwork == nil {
		travel.LoungeAccessNetwork = pq.StringArray{}
	}
	if err := upsertRow(ctx, tx, travelStruct, "travel_benefits", &travel); err != nil {
		return err
	}
	lifestyle := c.LifestyleBenefits
	lifestyle.CardID = cardID
	if err := upsertRow(ctx, tx, lifestyleStruct, "lifestyle_benefits", &lifestyle); err != nil {
		return err
	}
	eligibility := c.Eligibility
	eligibility.CardID = cardID
	if eligibility.EmploymentTypes == nil {
		eligibility.EmploymentTypes = pq.StringArray{}
	}
	if err := upsertRow(ctx, tx, eligibilityStruct, "eligibility_criteria", &eligibility); err != nil {
		return err
	}
	finePrint := c.FinePrint
	finePrint.CardID = cardID
	if finePrint.Capping == nil {
		finePrint.Capping = pq.StringArray{}
	}
	if finePrint.Exclusions == nil {
		finePrint.Exclusions = pq.StringArray{}
	}
	return upsertRow(ctx, tx, finePrintStruct, "fine_prints", &finePrint)
}

func (s *PostgresStore) stampPartners(cardID string, in []models.PartnerRow) []models.PartnerRow {
	out := make([]models.PartnerRow, len(in))
	for i, p := range in {
		p.ID, p.CardID = s.newID(), cardID
		out[i] = p
	}
	return out
}

func rowPtrs[T any](rows []T) []any {
	out := make([]any, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

// upsertRow inserts a one-to-one row keyed by card_id, overwriting any
// existing row for the card.
func upsertRow(ctx context.Context, tx *sqlx.Tx, st *sqlbuilder.Struct, table string, row any) error {
	query, args := st.InsertInto(table, row).Build()

	var assigns []string
	for _, col := range st.Columns() {
		if col == "card_id" {
			continue
		}
		assigns = append(assigns, col+" = EXCLUDED."+col)
	}
	query += " ON CONFLICT (card_id) DO UPDATE SET " + strings.Join(assigns, ", ")

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return writeErr(table, err)
	}
	return nil
}

func replaceRows(ctx context.Context, tx *sqlx.Tx, st *sqlbuilder.Struct, table, cardID string, replace bool, rows []any) error {
	if replace {
		del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
		del.DeleteFrom(table).Where(del.Equal("card_id", cardID))
		query, args := del.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return writeErr(table, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	query, args := st.InsertInto(table, rows...).Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return writeErr(table, err)
	}
	return nil
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("[postgres] Rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// SetEmbedding stores a card's embedding vector.
func (s *PostgresStore) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("credit_cards").
		Set("embedding = "+ub.Var(vectorLiteral(embedding))+"::vector").
		Where(ub.Equal("id", id))
	query, args := ub.Build()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: set embedding: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// vectorLiteral renders v in pgvector's text form, e.g. "[0.1,0.2]".
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func writeErr(table string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("postgres: insert into %s: %w: %s", table, ErrConflict, pqErr.Detail)
	}
	return fmt.Errorf("postgres: write %s: %w", table, err)
}
