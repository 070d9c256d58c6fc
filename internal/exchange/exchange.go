// Package exchange defines the capability every venue connector implements.
// The engine and driver depend only on this interface; authentication,
// signing and pacing differences stay inside each connector.
package exchange

import (
	"context"

	"github.com/you/arb-engine/internal/types"
)

type Venue interface {
	Name() string
	// FetchPrices returns the venue's full spot price snapshot.
	FetchPrices(ctx context.Context) (types.PriceSnapshot, error)
	// FetchOrderBook returns sorted depth for one symbol, up to limit levels
	// per side.
	FetchOrderBook(ctx context.Context, symbol string, limit int) (*types.OrderBook, error)
	// PlaceOrder submits a signed order. Connectors return the venue's
	// acknowledgement; they never retry on their own.
	PlaceOrder(ctx context.Context, req types.OrderRequest) (*types.OrderReceipt, error)
}
