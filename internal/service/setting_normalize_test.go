package service

import (
	"strings"
	"testing"

	"github.com/dujiao-next/foodcart/internal/constants"
)

func TestUpdateUnknownSettingKeptAsIs(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo, testDeliveryConfig())

	result, err := svc.Update("site_notice", map[string]interface{}{
		"text":  "  spaces kept  ",
		"extra": 3,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if result["text"] != "  spaces kept  " || result["extra"] != 3 {
		t.Fatalf("unknown key should not be normalized: %+v", result)
	}
}

func TestNormalizeSettingStringList(t *testing.T) {
	got := normalizeSettingStringList([]interface{}{" 09:00-12:00 ", "", "09:00-12:00", 42, "18:00-21:00"}, 0, 0)
	if strings.Join(got, "|") != "09:00-12:00|18:00-21:00" {
		t.Fatalf("unexpected list: %v", got)
	}

	got = normalizeSettingStringList("a, b ,A,c", 2, 0)
	if strings.Join(got, "|") != "a|b" {
		t.Fatalf("comma list with limit unexpected: %v", got)
	}

	got = normalizeSettingStringList([]string{"abcdef"}, 0, 3)
	if len(got) != 1 || got[0] != "abc" {
		t.Fatalf("rune limit unexpected: %v", got)
	}

	if got := normalizeSettingStringList(12, 0, 0); len(got) != 0 {
		t.Fatalf("unsupported type should give empty list, got %v", got)
	}
}

func TestParseSettingBool(t *testing.T) {
	cases := map[interface{}]bool{
		true:    true,
		"yes":   true,
		" ON ":  true,
		"1":     true,
		1:       true,
		0.0:     false,
		"off":   false,
		"maybe": false,
		nil:     false,
	}
	for raw, want := range cases {
		if got := parseSettingBool(raw); got != want {
			t.Fatalf("parseSettingBool(%v) want %v got %v", raw, want, got)
		}
	}
}

func TestNormalizeSettingTextWithRuneLimit(t *testing.T) {
	if got := normalizeSettingTextWithRuneLimit("  比尔比尔  ", 2); got != "比尔" {
		t.Fatalf("rune limit want 比尔 got %q", got)
	}
	if got := normalizeSettingTextWithRuneLimit(5, 2); got != "" {
		t.Fatalf("non string want empty got %q", got)
	}
	if got := normalizeSettingTextWithRuneLimit(constants.SettingFieldCurrency, 0); got != constants.SettingFieldCurrency {
		t.Fatalf("zero limit should keep text, got %q", got)
	}
}
