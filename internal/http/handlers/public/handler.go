package public

import "github.com/dujiao-next/foodcart/internal/provider"

// Handler 前台/公开接口处理器入口
// 说明：该处理器用于购物车、访客购物车与配送费报价 API。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
