package repository

// RestaurantListFilter 查询餐厅列表的过滤条件
type RestaurantListFilter struct {
	Page       int
	PageSize   int
	Search     string
	Status     string
	OnlyActive bool
}
