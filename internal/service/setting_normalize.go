package service

import (
	"strings"

	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/models"
)

// normalizeSettingValueByKey 按设置键执行归一化，避免非法值入库。
func (s *SettingService) normalizeSettingValueByKey(key string, value map[string]interface{}) models.JSON {
	switch key {
	case constants.SettingKeyDeliveryConfig:
		setting := deliverySettingFromJSON(models.JSON(value), s.deliveryDefaults)
		return models.JSON(DeliverySettingToMap(setting))
	default:
		return models.JSON(value)
	}
}

func normalizeSettingText(raw interface{}) string {
	text, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

func normalizeSettingTextWithRuneLimit(raw interface{}, maxRuneCount int) string {
	text := normalizeSettingText(raw)
	if text == "" || maxRuneCount <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= maxRuneCount {
		return text
	}
	return string(runes[:maxRuneCount])
}

// normalizeSettingStringList 去空、去重（忽略大小写）并保留原顺序
func normalizeSettingStringList(raw interface{}, maxItems, maxRuneCount int) []string {
	list := make([]interface{}, 0)
	switch value := raw.(type) {
	case []string:
		for _, item := range value {
			list = append(list, item)
		}
	case []interface{}:
		list = value
	case string:
		for _, item := range strings.Split(value, ",") {
			list = append(list, item)
		}
	default:
		return []string{}
	}

	result := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, item := range list {
		text := normalizeSettingTextWithRuneLimit(item, maxRuneCount)
		if text == "" {
			continue
		}
		key := strings.ToLower(text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, text)
		if maxItems > 0 && len(result) >= maxItems {
			break
		}
	}
	return result
}

func parseSettingBool(raw interface{}) bool {
	switch value := raw.(type) {
	case bool:
		return value
	case int:
		return value != 0
	case int64:
		return value != 0
	case float64:
		return value != 0
	case string:
		normalized := strings.ToLower(strings.TrimSpace(value))
		return normalized == "1" || normalized == "true" || normalized == "yes" || normalized == "on"
	default:
		return false
	}
}

func cloneStringSlice(items []string) []string {
	if len(items) == 0 {
		return []string{}
	}
	return append([]string(nil), items...)
}
