package workflow

import (
	"errors"
	"testing"

	"bitbucket.org/grupodatos/dwh_backend/models"
)

func TestValidateStagingCounts(t *testing.T) {
	cases := []struct {
		name   string
		counts models.StagingCounts
		ok     bool
	}{
		{"all present", models.StagingCounts{Customers: 10, Products: 5, LineItems: 100}, true},
		{"no line items is fine", models.StagingCounts{Customers: 10, Products: 5}, true},
		{"no customers", models.StagingCounts{Products: 5, LineItems: 100}, false},
		{"no products", models.StagingCounts{Customers: 10, LineItems: 100}, false},
		{"everything empty", models.StagingCounts{}, false},
	}

	for _, tc := range cases {
		err := ValidateStagingCounts(tc.counts)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrEmptyStaging) {
			t.Fatalf("%s: expected ErrEmptyStaging, got %v", tc.name, err)
		}
	}
}

func TestPipelineStageOrder(t *testing.T) {
	want := []models.RunStage{
		models.StageValidateStaging,
		models.StageLoadDimensions,
		models.StageResolveKeys,
		models.StageConvertAndBuildFact,
		models.StageLoadFacts,
	}
	stages := pipelineStages()
	if len(stages) != len(want) {
		t.Fatalf("got %d stages, want %d", len(stages), len(want))
	}
	for i, st := range stages {
		if st.name != want[i] {
			t.Fatalf("stage %d = %s, want %s", i, st.name, want[i])
		}
	}
	// Staging validation must run before any stage that writes.
	if stages[0].name != models.StageValidateStaging {
		t.Fatalf("first stage = %s", stages[0].name)
	}
}

func TestRunOptionsDefaults(t *testing.T) {
	opts := RunOptions{}.withDefaults()
	if opts.ReportingCurrency != "USD" {
		t.Fatalf("default currency = %q", opts.ReportingCurrency)
	}
	if opts.MissingRatePolicy != MissingRateDrop {
		t.Fatalf("default policy = %q", opts.MissingRatePolicy)
	}

	opts = RunOptions{ReportingCurrency: "CRC", MissingRatePolicy: MissingRateKeepOriginal}.withDefaults()
	if opts.ReportingCurrency != "CRC" || opts.MissingRatePolicy != MissingRateKeepOriginal {
		t.Fatalf("explicit options overridden: %+v", opts)
	}
}
