package courts

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("court not found")
	ErrVenueNotFound = errors.New("venue not found")
	ErrNotVenueOwner = errors.New("venue belongs to another owner")
)

var (
	millisPerHour = decimal.NewFromInt(int64(time.Hour / time.Millisecond))
	minorUnits    = decimal.NewFromInt(100)
)

type Venue struct {
	ID      int64  `db:"id" json:"id"`
	OwnerID string `db:"owner_id" json:"owner_id"`
	Name    string `db:"name" json:"name"`
	City    string `db:"city" json:"city"`
}

type Court struct {
	ID           int64           `db:"id" json:"id"`
	VenueID      int64           `db:"venue_id" json:"venue_id"`
	Name         string          `db:"name" json:"name"`
	Sport        string          `db:"sport" json:"sport"`
	PricePerHour decimal.Decimal `db:"price_per_hour" json:"price_per_hour"`
	Currency     string          `db:"currency" json:"currency"`
}

// AmountFor returns the price of playing for d, in minor currency units.
func (c Court) AmountFor(d time.Duration) int64 {
	hours := decimal.NewFromInt(d.Milliseconds()).Div(millisPerHour)
	return c.PricePerHour.Mul(hours).Mul(minorUnits).Round(0).IntPart()
}
