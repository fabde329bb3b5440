package models

import (
	"encoding/json"
	"testing"
)

func TestMoneyJSONRoundTrip(t *testing.T) {
	body, err := json.Marshal(Money(60000))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(body) != "600.00" {
		t.Fatalf("expected 600.00, got %s", body)
	}

	var m Money
	for input, want := range map[string]Money{
		`500`:     50000,
		`12.5`:    1250,
		`"19.99"`: 1999,
		`0.005`:   1,
		`null`:    0,
	} {
		if err := json.Unmarshal([]byte(input), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", input, err)
		}
		if m != want {
			t.Fatalf("unmarshal %s: expected %d, got %d", input, want, m)
		}
	}

	if err := json.Unmarshal([]byte(`"abc"`), &m); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}

func TestMoneyRepeatedAdditionHasNoDrift(t *testing.T) {
	var total Money
	fee, _ := ParseMoney("0.10")
	for i := 0; i < 1000; i++ {
		total += fee
	}
	if total.String() != "100.00" {
		t.Fatalf("expected 100.00, got %s", total)
	}
}
