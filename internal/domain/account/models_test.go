package account

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestUpsertParamsValidate(t *testing.T) {
	valid := UpsertParams{
		ExternalID:   "tink-acc-1",
		ConnectionID: "conn-1",
		Name:         "Zakelijke rekening",
		AccountType:  TypeChecking,
		Currency:     "EUR",
	}

	tests := []struct {
		name    string
		mutate  func(p *UpsertParams)
		wantErr bool
	}{
		{"valid", func(p *UpsertParams) {}, false},
		{"missing external id", func(p *UpsertParams) { p.ExternalID = "" }, true},
		{"missing connection id", func(p *UpsertParams) { p.ConnectionID = "" }, true},
		{"missing name", func(p *UpsertParams) { p.Name = "" }, true},
		{"bad account type", func(p *UpsertParams) { p.AccountType = "mortgage" }, true},
		{"missing currency", func(p *UpsertParams) { p.Currency = "" }, true},
		{"savings type", func(p *UpsertParams) { p.AccountType = TypeSavings }, false},
		{"business type", func(p *UpsertParams) { p.AccountType = TypeBusiness }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSummarize_ExcludesInactive(t *testing.T) {
	accounts := []*Account{
		{ExternalID: "a", Currency: "EUR", Balance: decimal.NewFromFloat(100.50), AvailableBalance: decimal.NewFromFloat(90), IsActive: true},
		{ExternalID: "b", Currency: "EUR", Balance: decimal.NewFromFloat(49.50), AvailableBalance: decimal.NewFromFloat(49.50), IsActive: true},
		{ExternalID: "c", Currency: "EUR", Balance: decimal.NewFromFloat(1000), IsActive: false},
		{ExternalID: "d", Currency: "USD", Balance: decimal.NewFromFloat(25), IsActive: true},
	}

	summaries := Summarize(accounts)
	if len(summaries) != 2 {
		t.Fatalf("Summarize() returned %d currencies, want 2", len(summaries))
	}

	byCurrency := map[string]BalanceSummary{}
	for _, s := range summaries {
		byCurrency[s.Currency] = s
	}

	eur := byCurrency["EUR"]
	if !eur.Total.Equal(decimal.NewFromFloat(150)) {
		t.Errorf("EUR total = %s, want 150", eur.Total)
	}
	if !eur.Available.Equal(decimal.NewFromFloat(139.50)) {
		t.Errorf("EUR available = %s, want 139.50", eur.Available)
	}
	if eur.Accounts != 2 {
		t.Errorf("EUR accounts = %d, want 2", eur.Accounts)
	}

	usd := byCurrency["USD"]
	if !usd.Total.Equal(decimal.NewFromFloat(25)) {
		t.Errorf("USD total = %s, want 25", usd.Total)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if got := Summarize(nil); got != nil {
		t.Errorf("Summarize(nil) = %v, want nil", got)
	}
}
