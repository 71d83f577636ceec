package public

import (
	"errors"

	"github.com/dujiao-next/foodcart/internal/cart"
	"github.com/dujiao-next/foodcart/internal/http/response"
	"github.com/dujiao-next/foodcart/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var restaurantErrorRules = []mappedHandlerError{
	{target: service.ErrRestaurantNotFound, code: response.CodeNotFound, msg: "restaurant not found"},
	{target: service.ErrRestaurantLocationMissing, code: response.CodeBadRequest, msg: "restaurant location is not configured"},
}

var deliveryFeeErrorRules = concatMappedHandlerErrors(restaurantErrorRules, []mappedHandlerError{
	{target: service.ErrDeliveryCoordinatesInvalid, code: response.CodeBadRequest, msg: "valid delivery latitude and longitude are required"},
	{target: service.ErrDeliveryRestaurantsRequired, code: response.CodeBadRequest, msg: "at least one restaurant is required"},
	{target: service.ErrDeliveryOutOfRange, code: response.CodeBadRequest, msg: "delivery location is out of range"},
	{target: service.ErrDeliveryConfigInvalid, code: response.CodeInternal, msg: "delivery config invalid"},
})

var cartErrorRules = []mappedHandlerError{
	{target: cart.ErrItemNotFound, code: response.CodeNotFound, msg: "cart item not found"},
	{target: cart.ErrInvalidProduct, code: response.CodeBadRequest, msg: "invalid product"},
	{target: cart.ErrInvalidRestaurant, code: response.CodeBadRequest, msg: "invalid restaurant"},
	{target: cart.ErrRestaurantClosed, code: response.CodeConflict, msg: cart.MessageRestaurantClosed},
	{target: cart.ErrLoginRequired, code: response.CodeUnauthorized, msg: cart.MessageLoginRequired},
	{target: cart.ErrPromoInvalid, code: response.CodeBadRequest, msg: cart.MessagePromoInvalid},
	{target: cart.ErrManagerClosed, code: response.CodeInternal, msg: "cart service is shutting down"},
	{target: cart.ErrEngineClosed, code: response.CodeInternal, msg: "cart session expired, please retry"},
}
