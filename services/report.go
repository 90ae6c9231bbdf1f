package services

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"credit-card-scraper/models"
)

// RecordFailure is one card that a bulk run could not process.
type RecordFailure struct {
	Name      string
	SourceURL string
	Err       string
}

// RunSummary counts the outcome of a bulk update or embed run.
type RunSummary struct {
	Flow      string
	Total     int
	Succeeded int
	Failed    int
	Failures  []RecordFailure
	StartedAt time.Time
	Duration  time.Duration
}

func newRunSummary(flow string, total int, start time.Time) *RunSummary {
	return &RunSummary{Flow: flow, Total: total, StartedAt: start}
}

func (s *RunSummary) succeed() { s.Succeeded++ }

func (s *RunSummary) fail(name, sourceURL string, err error) {
	s.Failed++
	s.Failures = append(s.Failures, RecordFailure{Name: name, SourceURL: sourceURL, Err: err.Error()})
}

func (s *RunSummary) finish(end time.Time) {
	s.Duration = end.Sub(s.StartedAt)
}

// Skipped is the number of cards never attempted because the run was interrupted.
func (s *RunSummary) Skipped() int {
	return s.Total - s.Succeeded - s.Failed
}

// Print renders the summary and any failures as tables.
func (s *RunSummary) Print(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s run", s.Flow))
	t.AppendHeader(table.Row{"Total", "Succeeded", "Failed", "Skipped", "Duration"})
	t.AppendRow(table.Row{s.Total, s.Succeeded, s.Failed, s.Skipped(), s.Duration.Round(time.Second)})
	t.Render()

	if len(s.Failures) == 0 {
		return
	}

	f := table.NewWriter()
	f.SetOutputMirror(w)
	f.SetStyle(table.StyleRounded)
	f.Style().Options.SeparateRows = true
	f.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 50},
		{Number: 3, WidthMax: 60},
	})
	f.AppendHeader(table.Row{"Card", "Source URL", "Error"})
	for _, fl := range s.Failures {
		f.AppendRow(table.Row{fl.Name, fl.SourceURL, fl.Err})
	}
	f.Render()
}

// CatalogueReport summarizes the stored card catalogue.
type CatalogueReport struct {
	TotalCards       int
	CardsByBank      map[string]int
	CardsByType      map[string]int
	AverageAnnualFee float64
	MinAnnualFee     float64
	MaxAnnualFee     float64
	MostExpensive    *models.CardRow
	TopRated         []models.CardRow
}

// BuildCatalogueReport aggregates fee and rating statistics over cards.
func BuildCatalogueReport(cards []*models.CreditCardRecord) *CatalogueReport {
	r := &CatalogueReport{
		CardsByBank: make(map[string]int),
		CardsByType: make(map[string]int),
	}
	if len(cards) == 0 {
		return r
	}
	r.TotalCards = len(cards)

	var rated []models.CardRow
	var feeTotal float64
	for i, c := range cards {
		r.CardsByBank[c.Bank.Name]++
		r.CardsByType[c.Card.CardType]++

		fee := c.Card.AnnualFee
		feeTotal += fee
		if i == 0 || fee < r.MinAnnualFee {
			r.MinAnnualFee = fee
		}
		if i == 0 || fee > r.MaxAnnualFee {
			r.MaxAnnualFee = fee
			r.MostExpensive = &cards[i].Card
		}
		if c.Card.Rating > 0 {
			rated = append(rated, c.Card)
		}
	}
	r.AverageAnnualFee = round2(feeTotal / float64(len(cards)))

	sort.SliceStable(rated, func(i, j int) bool {
		return rated[i].Rating > rated[j].Rating
	})
	if len(rated) > 5 {
		rated = rated[:5]
	}
	r.TopRated = rated
	return r
}

// Print renders the report as tables.
func (r *CatalogueReport) Print(w io.Writer) {
	overview := table.NewWriter()
	overview.SetOutputMirror(w)
	overview.SetStyle(table.StyleRounded)
	overview.SetTitle("Card catalogue")
	overview.AppendRows([]table.Row{
		{"Total cards", r.TotalCards},
		{"Average annual fee", fmt.Sprintf("₹%.2f", r.AverageAnnualFee)},
		{"Lowest annual fee", fmt.Sprintf("₹%.2f", r.MinAnnualFee)},
		{"Highest annual fee", fmt.Sprintf("₹%.2f", r.MaxAnnualFee)},
	})
	if r.MostExpensive != nil {
		overview.AppendRow(table.Row{"Most expensive", truncate(r.MostExpensive.Name, 40)})
	}
	overview.Render()

	if len(r.TopRated) > 0 {
		top := table.NewWriter()
		top.SetOutputMirror(w)
		top.SetStyle(table.StyleRounded)
		top.SetTitle("Top rated")
		top.AppendHeader(table.Row{"#", "Card", "Rating"})
		for i, c := range r.TopRated {
			top.AppendRow(table.Row{i + 1, truncate(c.Name, 40), fmt.Sprintf("%.2f", c.Rating)})
		}
		top.Render()
	}

	counts := table.NewWriter()
	counts.SetOutputMirror(w)
	counts.SetStyle(table.StyleRounded)
	counts.AppendHeader(table.Row{"Group", "Value", "Cards"})
	for _, kv := range sortedCounts(r.CardsByBank) {
		counts.AppendRow(table.Row{"bank", kv.key, kv.count})
	}
	for _, kv := range sortedCounts(r.CardsByType) {
		counts.AppendRow(table.Row{"type", kv.key, kv.count})
	}
	counts.Render()
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders by count descending, then key.
func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
