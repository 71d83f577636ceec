package feequote

import (
	"context"

	"github.com/dujiao-next/foodcart/internal/cart"
	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/logger"
	"github.com/dujiao-next/foodcart/internal/models"

	"go.uber.org/zap"
)

// BreakdownWriter 多餐厅明细写入
type BreakdownWriter interface {
	Set(ctx context.Context, key cart.IdentityKey, breakdown *cart.FeeBreakdown) error
}

// Client 购物车报价客户端，错误统一收敛进 cart.QuoteResult
type Client struct {
	svc        Service
	breakdowns BreakdownWriter
	log        *zap.SugaredLogger
}

// NewClient 创建报价客户端；breakdowns 可为空
func NewClient(svc Service, breakdowns BreakdownWriter) *Client {
	return &Client{
		svc:        svc,
		breakdowns: breakdowns,
		log:        logger.Named("fee_quote_client"),
	}
}

// Quote 按餐厅数量选择单店或多店报价
func (c *Client) Quote(ctx context.Context, key cart.IdentityKey, location *cart.DeliveryLocation, restaurants []cart.RestaurantRef) cart.QuoteResult {
	if !location.Complete() || len(restaurants) == 0 {
		return cart.QuoteResult{Status: constants.FeeStatusNone}
	}
	if c.svc == nil {
		return cart.QuoteResult{Status: constants.FeeStatusUnknown, Err: ErrRequestFailed}
	}

	if len(restaurants) == 1 {
		quote, err := c.svc.QuoteSingle(ctx, SingleRequest{
			RestaurantID:      restaurants[0].ID,
			DeliveryLatitude:  location.Latitude,
			DeliveryLongitude: location.Longitude,
		})
		if err != nil {
			return cart.QuoteResult{Status: constants.FeeStatusUnknown, Err: err}
		}
		return cart.QuoteResult{Fee: quote.DeliveryFee.NonNegative(), Status: constants.FeeStatusQuoted}
	}

	ids := make([]uint, 0, len(restaurants))
	for _, ref := range restaurants {
		ids = append(ids, ref.ID)
	}
	quote, err := c.svc.QuoteMulti(ctx, MultiRequest{
		RestaurantIDs:     ids,
		DeliveryLatitude:  location.Latitude,
		DeliveryLongitude: location.Longitude,
	})
	if err != nil {
		return cart.QuoteResult{Status: constants.FeeStatusUnknown, Err: err}
	}
	c.stashBreakdown(ctx, key, quote)
	return cart.QuoteResult{Fee: quote.TotalDeliveryFee.NonNegative(), Status: constants.FeeStatusQuoted}
}

// PublicSettings 透传公共配送设置，供引擎刷新
func (c *Client) PublicSettings(ctx context.Context) (models.JSON, error) {
	if c.svc == nil {
		return nil, ErrRequestFailed
	}
	return c.svc.PublicSettings(ctx)
}

func (c *Client) stashBreakdown(ctx context.Context, key cart.IdentityKey, quote *MultiQuote) {
	if c.breakdowns == nil || key == "" {
		return
	}
	breakdown := &cart.FeeBreakdown{
		TotalDeliveryFee:  quote.TotalDeliveryFee,
		FeeBreakdown:      quote.FeeBreakdown,
		Explanation:       quote.Explanation,
		Restaurants:       quote.Restaurants,
		CalculationMethod: quote.CalculationMethod,
	}
	if err := c.breakdowns.Set(ctx, key, breakdown); err != nil {
		c.log.Warnw("fee_breakdown_stash_failed", "key", key.String(), "error", err)
	}
}
