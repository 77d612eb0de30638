package workflow

import (
	"testing"
	"time"

	"bitbucket.org/grupodatos/dwh_backend/models"
)

func lineKeyMaps() (map[models.SourceSystem]map[string]string, map[models.SourceSystem]map[string]string) {
	emailByKey := map[models.SourceSystem]map[string]string{
		models.SourceMySQL: {"77": "bruno@example.com"},
	}
	codeByKey := map[models.SourceSystem]map[string]string{
		models.SourceMySQL: {"9": "SKU-777"},
	}
	return emailByKey, codeByKey
}

func TestStandardizeLines(t *testing.T) {
	emailByKey, codeByKey := lineKeyMaps()
	staged := []models.StagedLineItem{
		{SourceSystem: models.SourceMySQL, OrderKey: "O-1", ProductKey: "9", CustomerKey: "77", Quantity: 2, UnitPriceRaw: "1.200,50", Currency: "CRC", OrderDateRaw: "2024-03-05", Channel: "tienda", DiscountRaw: "10"},
		{SourceSystem: models.SourceMySQL, OrderKey: "O-2", ProductKey: "9", CustomerKey: "77", Quantity: 0, UnitPriceRaw: "10", Currency: "USD", OrderDateRaw: "2024-03-05"},
		{SourceSystem: models.SourceMySQL, OrderKey: "O-3", ProductKey: "9", CustomerKey: "77", Quantity: 1, UnitPriceRaw: "abc", Currency: "USD", OrderDateRaw: "2024-03-05"},
		{SourceSystem: models.SourceMySQL, OrderKey: "O-4", ProductKey: "9", CustomerKey: "77", Quantity: 1, UnitPriceRaw: "10", Currency: "USD", OrderDateRaw: "31/12/2024"},
		{SourceSystem: models.SourceMySQL, OrderKey: "O-5", ProductKey: "9", CustomerKey: "unknown", Quantity: 1, UnitPriceRaw: "10", Currency: "USD", OrderDateRaw: "2024-03-05"},
		{SourceSystem: models.SourceMySQL, OrderKey: "O-6", ProductKey: "unknown", CustomerKey: "77", Quantity: 1, UnitPriceRaw: "10", Currency: "USD", OrderDateRaw: "2024-03-05"},
	}

	lines, drops, flags := StandardizeLines(staged, emailByKey, codeByKey)

	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if len(flags) != 0 {
		t.Fatalf("unexpected default flags: %v", flags)
	}
	want := map[string]int{
		DropInvalidQuantity: 1,
		DropInvalidPrice:    1,
		DropInvalidDate:     1,
		DropUnknownCustomer: 1,
		DropUnknownProduct:  1,
	}
	for reason, n := range want {
		if drops[reason] != n {
			t.Fatalf("drops[%s] = %d, want %d (all drops: %v)", reason, drops[reason], n, drops)
		}
	}
	if len(staged) != len(lines)+totalDrops(drops) {
		t.Fatalf("accounting broken: %d != %d + %d", len(staged), len(lines), totalDrops(drops))
	}

	line := lines[0]
	if line.UnitPrice.String() != "1200.5" {
		t.Fatalf("unit price = %s", line.UnitPrice)
	}
	if line.Email != "bruno@example.com" || line.Code != "SKU-777" {
		t.Fatalf("keys not rewritten: %+v", line)
	}
	if line.Channel != "TIENDA" {
		t.Fatalf("channel = %q", line.Channel)
	}
	if line.Discount.String() != "10" {
		t.Fatalf("discount = %s", line.Discount)
	}
	if want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC); !line.OrderDate.Equal(want) {
		t.Fatalf("order date = %v, want %v", line.OrderDate, want)
	}
}

func TestStandardizeLinesCountsDefaultedDiscounts(t *testing.T) {
	emailByKey, codeByKey := lineKeyMaps()
	staged := []models.StagedLineItem{
		{SourceSystem: models.SourceMySQL, OrderKey: "O-1", ProductKey: "9", CustomerKey: "77", Quantity: 1, UnitPriceRaw: "10", Currency: "USD", OrderDateRaw: "2024-03-05", DiscountRaw: "garbage"},
		{SourceSystem: models.SourceMySQL, OrderKey: "O-2", ProductKey: "9", CustomerKey: "77", Quantity: 1, UnitPriceRaw: "10", Currency: "USD", OrderDateRaw: "2024-03-05", DiscountRaw: ""},
		{SourceSystem: models.SourceMySQL, OrderKey: "O-3", ProductKey: "9", CustomerKey: "77", Quantity: 1, UnitPriceRaw: "10", Currency: "USD", OrderDateRaw: "2024-03-05", DiscountRaw: "15"},
	}

	lines, drops, flags := StandardizeLines(staged, emailByKey, codeByKey)

	// The unreadable discount never drops the line, but it must be counted.
	if len(lines) != 3 || len(drops) != 0 {
		t.Fatalf("got %d lines, drops %v", len(lines), drops)
	}
	if flags[FlagDiscountDefaulted] != 1 {
		t.Fatalf("flags = %v, want one %s", flags, FlagDiscountDefaulted)
	}
	if !lines[0].Discount.IsZero() {
		t.Fatalf("defaulted discount = %s, want 0", lines[0].Discount)
	}
	if lines[2].Discount.String() != "15" {
		t.Fatalf("readable discount = %s, want 15", lines[2].Discount)
	}
}

func TestResolveDropsUnresolvableKeys(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	resolver := &KeyResolver{
		CustomerIdByEmail: map[string]int{"bruno@example.com": 10},
		ProductIdByCode:   map[string]int{"SKU-777": 20},
		TimeIdByDate:      map[time.Time]int{day: 30},
		ChannelIdByName:   map[string]int{"WEB": 1, "TIENDA": 2},
		OrderIdByKey: map[models.SourceSystem]map[string]int{
			models.SourceMySQL: {"O-1": 40},
		},
	}

	base := StandardizedLine{
		SourceSystem: models.SourceMySQL,
		OrderKey:     "O-1",
		Code:         "SKU-777",
		Email:        "bruno@example.com",
		Quantity:     1,
		Currency:     "USD",
		OrderDate:    day,
		Channel:      "TIENDA",
	}

	missingChannel := base
	missingChannel.Channel = "FAX"
	missingTime := base
	missingTime.OrderDate = day.AddDate(0, 0, 1)
	missingOrder := base
	missingOrder.OrderKey = "O-99"

	resolved, drops := resolver.Resolve([]StandardizedLine{base, missingChannel, missingTime, missingOrder})

	if len(resolved) != 1 {
		t.Fatalf("got %d resolved, want 1", len(resolved))
	}
	r := resolved[0]
	if r.CustomerId != 10 || r.ProductId != 20 || r.TimeId != 30 || r.ChannelId != 2 || r.OrderId != 40 {
		t.Fatalf("resolved ids = %+v", r)
	}
	if drops[DropUnknownChannel] != 1 || drops[DropUnknownTime] != 1 || drops[DropUnknownOrder] != 1 {
		t.Fatalf("drops = %v", drops)
	}
}
