package functions

import (
	"context"

	"coinsage/internal/service/market"
)

// RegisterMarketFunctions wires the market-data client into the registry
// under the names the embedded schemas advertise.
func RegisterMarketFunctions(r *Registry, client *market.Client) {
	r.Register("get_coin_metrics", func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		return client.CoinList(ctx)
	})

	r.Register("get_coin_metrics_by_id", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		coinID, _ := args["coin_id"].(string)
		return client.CoinByID(ctx, coinID)
	})

	r.Register("get_coin_time_series", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		coinID, _ := args["coin_id"].(string)
		interval, _ := args["interval"].(string)
		return client.CoinTimeSeries(ctx, coinID, interval)
	})
}
