package workflow

import (
	"time"

	"bitbucket.org/grupodatos/dwh_backend/models"
	"bitbucket.org/grupodatos/dwh_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Drop reasons for line standardization and key resolution.
const (
	DropInvalidQuantity = "invalid_quantity"
	DropInvalidPrice    = "invalid_price"
	DropInvalidDate     = "invalid_date"
	DropUnknownCustomer = "unknown_customer"
	DropUnknownProduct  = "unknown_product"
	DropUnknownChannel  = "unknown_channel"
	DropUnknownTime     = "unknown_time"
	DropUnknownOrder    = "unknown_order"

	// FlagDiscountDefaulted counts lines whose unreadable discount was set to
	// zero. Not a drop, but it must never pass silently.
	FlagDiscountDefaulted = "discount_defaulted"
)

// StandardizedLine is a staged order line with all source-native encodings
// resolved to typed values and natural keys rewritten to warehouse-meaningful
// ones (email, official SKU).
type StandardizedLine struct {
	SourceSystem models.SourceSystem
	OrderKey     string
	Code         string // official SKU
	Email        string
	Quantity     int
	UnitPrice    decimal.Decimal
	Currency     string
	OrderDate    time.Time
	Channel      string
	Discount     decimal.Decimal
}

// StandardizeLines converts raw staged lines into typed ones. emailByKey and
// codeByKey rewrite each source's customer/product natural keys into the
// cross-source natural keys the dimensions are built on; rows whose values
// cannot be parsed or whose keys have no staging counterpart are dropped and
// counted, never defaulted. The third return counts value defaults applied to
// lines that still loaded (currently only discounts).
func StandardizeLines(
	staged []models.StagedLineItem,
	emailByKey map[models.SourceSystem]map[string]string,
	codeByKey map[models.SourceSystem]map[string]string,
) ([]StandardizedLine, map[string]int, map[string]int) {
	drops := map[string]int{}
	flags := map[string]int{}
	out := make([]StandardizedLine, 0, len(staged))

	for _, row := range staged {
		if row.Quantity <= 0 {
			drops[DropInvalidQuantity]++
			continue
		}

		price, err := CleanNumericString(row.UnitPriceRaw)
		if err != nil || price.IsNegative() {
			drops[DropInvalidPrice]++
			continue
		}

		orderDate, ok := StandardizeDate(row.OrderDateRaw)
		if !ok {
			drops[DropInvalidDate]++
			continue
		}

		email, ok := emailByKey[row.SourceSystem][row.CustomerKey]
		if !ok {
			drops[DropUnknownCustomer]++
			continue
		}

		code, ok := codeByKey[row.SourceSystem][row.ProductKey]
		if !ok {
			drops[DropUnknownProduct]++
			continue
		}

		discount, defaulted := ParseDiscount(row.DiscountRaw)
		if defaulted {
			flags[FlagDiscountDefaulted]++
		}

		out = append(out, StandardizedLine{
			SourceSystem: row.SourceSystem,
			OrderKey:     row.OrderKey,
			Code:         code,
			Email:        email,
			Quantity:     row.Quantity,
			UnitPrice:    price,
			Currency:     row.Currency,
			OrderDate:    utils.DateOnly(orderDate),
			Channel:      NormalizeChannel(row.Channel),
			Discount:     discount,
		})
	}

	return out, drops, flags
}

// ResolvedLine is a standardized line with every natural key exchanged for
// its warehouse surrogate id.
type ResolvedLine struct {
	StandardizedLine
	CustomerId int
	ProductId  int
	TimeId     int
	ChannelId  int
	OrderId    int
}

// KeyResolver maps natural keys to the surrogate ids of the just-persisted
// dimensions. Lookup is exact equality only.
type KeyResolver struct {
	CustomerIdByEmail map[string]int
	ProductIdByCode   map[string]int
	TimeIdByDate      map[time.Time]int
	ChannelIdByName   map[string]int
	OrderIdByKey      map[models.SourceSystem]map[string]int
}

// NewKeyResolverFromDB snapshots the dimension tables into lookup maps.
func NewKeyResolverFromDB(db *gorm.DB) (*KeyResolver, error) {
	customers, err := models.GetCustomerIdsByEmail(db)
	if err != nil {
		return nil, err
	}
	products, err := models.GetProductIdsByCode(db)
	if err != nil {
		return nil, err
	}
	times, err := models.GetTimeIdsByDate(db)
	if err != nil {
		return nil, err
	}
	channels, err := models.GetChannelIdsByName(db)
	if err != nil {
		return nil, err
	}
	orders, err := models.GetOrderIdsBySourceKey(db)
	if err != nil {
		return nil, err
	}
	return &KeyResolver{
		CustomerIdByEmail: customers,
		ProductIdByCode:   products,
		TimeIdByDate:      times,
		ChannelIdByName:   channels,
		OrderIdByKey:      orders,
	}, nil
}

// Resolve exchanges every line's natural keys for surrogate ids. A line with
// any unresolved key is excluded from the fact batch and counted under the
// first key that failed; it is never emitted with a placeholder foreign key.
func (r *KeyResolver) Resolve(lines []StandardizedLine) ([]ResolvedLine, map[string]int) {
	drops := map[string]int{}
	out := make([]ResolvedLine, 0, len(lines))

	for _, line := range lines {
		customerId, ok := r.CustomerIdByEmail[line.Email]
		if !ok {
			drops[DropUnknownCustomer]++
			continue
		}
		productId, ok := r.ProductIdByCode[line.Code]
		if !ok {
			drops[DropUnknownProduct]++
			continue
		}
		timeId, ok := r.TimeIdByDate[line.OrderDate]
		if !ok {
			drops[DropUnknownTime]++
			continue
		}
		channelId, ok := r.ChannelIdByName[line.Channel]
		if !ok {
			drops[DropUnknownChannel]++
			continue
		}
		orderId, ok := r.OrderIdByKey[line.SourceSystem][line.OrderKey]
		if !ok {
			drops[DropUnknownOrder]++
			continue
		}

		out = append(out, ResolvedLine{
			StandardizedLine: line,
			CustomerId:       customerId,
			ProductId:        productId,
			TimeId:           timeId,
			ChannelId:        channelId,
			OrderId:          orderId,
		})
	}

	return out, drops
}
