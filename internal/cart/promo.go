package cart

import (
	"sort"
	"strings"

	"github.com/dujiao-next/foodcart/internal/models"

	"github.com/shopspring/decimal"
)

var defaultPromoCodes = map[string]int{
	"WELCOME20": 20,
	"SAVE10":    10,
	"FIRST50":   50,
	"STUDENT15": 15,
	"FREE30":    30,
}

// PromoResult 优惠码校验结果
type PromoResult struct {
	Success  bool         `json:"success"`
	Code     string       `json:"code,omitempty"`
	Discount models.Money `json:"discount"`
	Error    string       `json:"error,omitempty"`
}

// PromoTable 固定面额优惠码表
type PromoTable struct {
	codes map[string]models.Money
}

// DefaultPromoTable 内置优惠码表
func DefaultPromoTable() PromoTable {
	return NewPromoTable(nil)
}

// NewPromoTable 创建优惠码表，为空时使用内置表
func NewPromoTable(codes map[string]int) PromoTable {
	if len(codes) == 0 {
		codes = defaultPromoCodes
	}
	table := PromoTable{codes: make(map[string]models.Money, len(codes))}
	for code, amount := range codes {
		normalized := normalizePromoCode(code)
		if normalized == "" || amount <= 0 {
			continue
		}
		table.codes[normalized] = models.NewMoneyFromDecimal(decimal.NewFromInt(int64(amount)))
	}
	return table
}

// Validate 校验优惠码（忽略大小写），无副作用
func (t PromoTable) Validate(code string) PromoResult {
	normalized := normalizePromoCode(code)
	if amount, ok := t.codes[normalized]; ok && normalized != "" {
		return PromoResult{Success: true, Code: normalized, Discount: amount}
	}
	return PromoResult{Success: false, Error: MessagePromoInvalid}
}

// Codes 返回已配置的优惠码，升序
func (t PromoTable) Codes() []string {
	codes := make([]string, 0, len(t.codes))
	for code := range t.codes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func normalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
