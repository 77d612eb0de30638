package workflow

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/grupodatos/dwh_backend/models"
)

func TestCleanNumericString(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1.200,50", "1200.5", false},
		{"1.750.000", "1750000", false},
		{"1.750.000,25", "1750000.25", false},
		{"-1.200,50", "-1200.5", false},
		{"1,200.50", "1200.5", false},
		{"12,345,678.99", "12345678.99", false},
		{"1200.50", "1200.5", false},
		{"1200", "1200", false},
		{"0", "0", false},
		{"  99.90  ", "99.9", false},
		{"abc", "", true},
		{"", "", true},
		{"12.34.56", "", true},
		{"1.200,50,00", "", true},
		{"1.200,", "", true},
		{"1,20", "", true},
		{"12,3456.00", "", true},
		{"1,200,50", "", true},
	}

	for _, tc := range cases {
		got, err := CleanNumericString(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrNotANumber) {
				t.Fatalf("CleanNumericString(%q): expected ErrNotANumber, got %v (value %s)", tc.in, err, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("CleanNumericString(%q): unexpected error %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Fatalf("CleanNumericString(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestStandardizeGender(t *testing.T) {
	cases := []struct {
		in   string
		want models.Gender
	}{
		{"M", models.GenderMale},
		{"m", models.GenderMale},
		{"Masculino", models.GenderMale},
		{"F", models.GenderFemale},
		{"femenino", models.GenderFemale},
		{"X", models.GenderUnspecified},
		{"Otro", models.GenderUnspecified},
		{"", models.GenderUnspecified},
		{"  M  ", models.GenderMale},
	}
	for _, tc := range cases {
		if got := StandardizeGender(tc.in); got != tc.want {
			t.Fatalf("StandardizeGender(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestStandardizeDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-05", "2024-03-05", true},
		{"2024-03-05 13:45:00", "2024-03-05", true},
		{"2024/03/05", "2024-03-05", true},
		{"2024-03-05T13:45:00", "2024-03-05", true},
		{"05/03/2024", "", false},
		{"not a date", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := StandardizeDate(tc.in)
		if ok != tc.ok {
			t.Fatalf("StandardizeDate(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
		if ok && got.Format("2006-01-02") != tc.want {
			t.Fatalf("StandardizeDate(%q) = %s, want %s", tc.in, got.Format("2006-01-02"), tc.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got, ok := NormalizeEmail("  Ana.Lopez@Example.COM "); !ok || got != "ana.lopez@example.com" {
		t.Fatalf("NormalizeEmail = %q, %v", got, ok)
	}
	for _, bad := range []string{"", "   ", "not-an-email", "a@", "@b.com"} {
		if _, ok := NormalizeEmail(bad); ok {
			t.Fatalf("NormalizeEmail(%q) accepted invalid email", bad)
		}
	}
}

func TestNormalizeChannelDefaultsToWeb(t *testing.T) {
	if got := NormalizeChannel(""); got != "WEB" {
		t.Fatalf("NormalizeChannel(\"\") = %q, want WEB", got)
	}
	if got := NormalizeChannel(" tienda "); got != "TIENDA" {
		t.Fatalf("NormalizeChannel = %q, want TIENDA", got)
	}
}

func TestParseDiscount(t *testing.T) {
	cases := []struct {
		in        string
		want      string
		defaulted bool
	}{
		{"", "0", false},
		{"garbage", "0", true},
		{"1.200,", "0", true},
		{"15", "15", false},
		{"12.5", "12.5", false},
		{"-5", "0", false},
		{"250", "100", false},
	}
	for _, tc := range cases {
		got, defaulted := ParseDiscount(tc.in)
		if got.String() != tc.want {
			t.Fatalf("ParseDiscount(%q) = %s, want %s", tc.in, got, tc.want)
		}
		if defaulted != tc.defaulted {
			t.Fatalf("ParseDiscount(%q) defaulted = %v, want %v", tc.in, defaulted, tc.defaulted)
		}
	}
}

func TestStandardizeDatePreservesDay(t *testing.T) {
	got, ok := StandardizeDate("2023-12-31 23:59:59")
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	want := time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("StandardizeDate = %v, want %v", got, want)
	}
}
