package workflow

import (
	"sort"
	"strings"
	"time"

	"bitbucket.org/grupodatos/dwh_backend/models"
	"bitbucket.org/grupodatos/dwh_backend/utils"
)

// Drop reasons used across consolidation stages. Every dropped row is counted
// under exactly one reason so rows read always equal rows kept plus drops.
const (
	DropInvalidEmail   = "invalid_email"
	DropDuplicateEmail = "duplicate_email"
	DropMissingCode    = "missing_code"
	DropMissingName    = "missing_name"
	DropDuplicateCode  = "duplicate_code"
)

// unknownRegistration stands in for customers whose registration date no
// source could provide. A fixed sentinel keeps reruns byte-identical.
var unknownRegistration = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// CustomerConsolidation is the output contract of the customer merge: the
// whole candidate set or nothing, plus drop accounting.
type CustomerConsolidation struct {
	Read       int
	Candidates []models.DimCustomer
	Drops      map[string]int
}

// sortBySourcePriority orders candidate rows by the fixed source priority,
// keeping original row order within a source. This pins down the first-wins
// tie-break so reruns are deterministic regardless of staging load order.
func sortBySourcePriority[T any](rows []T, source func(T) models.SourceSystem) {
	sort.SliceStable(rows, func(i, j int) bool {
		return source(rows[i]).Priority() < source(rows[j]).Priority()
	})
}

// ConsolidateCustomers merges per-source staged customers into canonical
// dimension candidates, deduplicating by normalized email. The first row in
// source-priority + original order wins; later duplicates are dropped without
// merging attributes. The canonical created_at is the earliest parseable
// registration date seen for that email across all rows.
func ConsolidateCustomers(staged []models.StagedCustomer) CustomerConsolidation {
	rows := make([]models.StagedCustomer, len(staged))
	copy(rows, staged)
	sortBySourcePriority(rows, func(c models.StagedCustomer) models.SourceSystem { return c.SourceSystem })

	out := CustomerConsolidation{
		Read:  len(rows),
		Drops: map[string]int{},
	}

	indexByEmail := make(map[string]int)
	registeredByEmail := make(map[string]*time.Time)

	for _, row := range rows {
		email, ok := NormalizeEmail(row.Email)
		if !ok {
			out.Drops[DropInvalidEmail]++
			continue
		}

		var registered *time.Time
		if t, ok := StandardizeDate(row.RegisteredRaw); ok {
			d := utils.DateOnly(t)
			registered = &d
		}

		if idx, seen := indexByEmail[email]; seen {
			out.Drops[DropDuplicateEmail]++
			// Duplicates never update attributes, but they can still push
			// the registration date back.
			if oldest := utils.FindOldestDate(registeredByEmail[email], registered); oldest != nil {
				registeredByEmail[email] = oldest
				out.Candidates[idx].CreatedAt = *oldest
			}
			continue
		}

		candidate := models.DimCustomer{
			Name:      strings.TrimSpace(row.Name),
			Email:     email,
			Gender:    StandardizeGender(row.GenderRaw),
			Country:   strings.TrimSpace(row.Country),
			CreatedAt: unknownRegistration,
		}
		if registered != nil {
			candidate.CreatedAt = *registered
		}
		indexByEmail[email] = len(out.Candidates)
		registeredByEmail[email] = registered
		out.Candidates = append(out.Candidates, candidate)
	}

	return out
}

// ConsolidateCategories collects the distinct normalized category names across
// all staged products, sorted for stable ids.
func ConsolidateCategories(staged []models.StagedProduct) []models.DimCategory {
	seen := make(map[string]struct{})
	var names []string
	for _, p := range staged {
		name := NormalizeCategory(p.Category)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.DimCategory, 0, len(names))
	for _, name := range names {
		out = append(out, models.DimCategory{Name: name})
	}
	return out
}

// ProductConsolidation carries the deduplicated product candidates plus the
// bridge rows minted for native codes that had no mapping yet.
type ProductConsolidation struct {
	Read        int
	Candidates  []models.DimProduct
	NewMappings []models.ProductMapping
	Drops       map[string]int
}

// ConsolidateProducts merges staged products into canonical candidates keyed
// by official SKU. The canonical code is resolved through the product-mapping
// bridge; native codes without a mapping self-map and produce a bridge row
// pointing at themselves. categoryIds resolves normalized category names to
// the just-persisted DimCategory ids.
func ConsolidateProducts(
	staged []models.StagedProduct,
	bridge map[models.SourceSystem]map[string]string,
	categoryIds map[string]int,
) ProductConsolidation {
	rows := make([]models.StagedProduct, len(staged))
	copy(rows, staged)
	sortBySourcePriority(rows, func(p models.StagedProduct) models.SourceSystem { return p.SourceSystem })

	out := ProductConsolidation{
		Read:  len(rows),
		Drops: map[string]int{},
	}

	seenCanonical := make(map[string]struct{})
	mintedMapping := make(map[models.SourceSystem]map[string]struct{})

	for _, row := range rows {
		nativeCode := NormalizeSKU(row.Code)
		if nativeCode == "" {
			out.Drops[DropMissingCode]++
			continue
		}
		name := strings.TrimSpace(row.Name)
		if name == "" {
			out.Drops[DropMissingName]++
			continue
		}

		canonical, mapped := "", false
		if codes, ok := bridge[row.SourceSystem]; ok {
			canonical, mapped = codes[nativeCode]
		}
		if !mapped {
			// Self-map: the native code becomes its own official SKU and the
			// bridge records that decision for traceability.
			canonical = nativeCode
			if mintedMapping[row.SourceSystem] == nil {
				mintedMapping[row.SourceSystem] = make(map[string]struct{})
			}
			if _, dup := mintedMapping[row.SourceSystem][nativeCode]; !dup {
				mintedMapping[row.SourceSystem][nativeCode] = struct{}{}
				out.NewMappings = append(out.NewMappings, models.ProductMapping{
					SourceSystem: row.SourceSystem,
					SourceCode:   nativeCode,
					OfficialCode: canonical,
					Description:  name,
				})
			}
		}

		if _, dup := seenCanonical[canonical]; dup {
			out.Drops[DropDuplicateCode]++
			continue
		}
		seenCanonical[canonical] = struct{}{}

		candidate := models.DimProduct{
			Code: canonical,
			Name: name,
		}
		if catId, ok := categoryIds[NormalizeCategory(row.Category)]; ok {
			candidate.CategoryId = &catId
		}
		out.Candidates = append(out.Candidates, candidate)
	}

	return out
}
