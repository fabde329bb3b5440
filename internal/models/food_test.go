package models

import (
	"encoding/json"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func moneyPtr(m Money) *Money { return &m }

func TestNormalizeOfferDerivesEightyPercent(t *testing.T) {
	food := Food{Price: 1299, IsOnOffer: true}
	food.NormalizeOffer()
	if food.OfferPrice == nil || *food.OfferPrice != 1039 {
		t.Fatalf("expected offer 10.39, got %v", food.OfferPrice)
	}

	food = Food{Price: 1000, IsOnOffer: true, OfferPrice: moneyPtr(1200)}
	food.NormalizeOffer()
	if *food.OfferPrice != 800 {
		t.Fatalf("expected derived offer 8.00 when offer >= price, got %v", *food.OfferPrice)
	}

	food = Food{Price: 1000, IsOnOffer: true, OfferPrice: moneyPtr(1000)}
	food.NormalizeOffer()
	if *food.OfferPrice != 800 {
		t.Fatalf("expected derived offer when offer equals price, got %v", *food.OfferPrice)
	}
}

func TestNormalizeOfferKeepsValidOfferAndClearsWhenOff(t *testing.T) {
	food := Food{Price: 1000, IsOnOffer: true, OfferPrice: moneyPtr(750)}
	food.NormalizeOffer()
	if *food.OfferPrice != 750 {
		t.Fatalf("expected offer kept, got %v", *food.OfferPrice)
	}

	food.IsOnOffer = false
	food.NormalizeOffer()
	if food.OfferPrice != nil {
		t.Fatalf("expected offer cleared, got %v", *food.OfferPrice)
	}
}

func TestEffectivePriceUsesOfferOnlyWhenOnOffer(t *testing.T) {
	food := Food{Price: 1000, IsOnOffer: true, OfferPrice: moneyPtr(750)}
	if got := food.EffectivePrice(); got != 750 {
		t.Fatalf("expected 7.50, got %v", got)
	}
	food.IsOnOffer = false
	if got := food.EffectivePrice(); got != 1000 {
		t.Fatalf("expected 10.00, got %v", got)
	}
}

func TestPrependImagesCapsGallery(t *testing.T) {
	food := Food{Images: []string{"c", "d", "e", "f"}}
	evicted := food.PrependImages([]string{"a", "b"})
	want := []string{"a", "b", "c", "d", "e"}
	if strings.Join(food.Images, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, food.Images)
	}
	if len(evicted) != 1 || evicted[0] != "f" {
		t.Fatalf("expected f evicted, got %v", evicted)
	}
}

func TestRecipeDecodesStringOrList(t *testing.T) {
	var food Food
	if err := json.Unmarshal([]byte(`{"recipe":"Boil water"}`), &food); err != nil {
		t.Fatalf("unmarshal string recipe: %v", err)
	}
	if len(food.Recipe) != 1 || food.Recipe[0] != "Boil water" {
		t.Fatalf("unexpected recipe %v", food.Recipe)
	}

	raw, err := bson.Marshal(bson.M{"recipe": "Mix"})
	if err != nil {
		t.Fatalf("bson marshal: %v", err)
	}
	var decoded Food
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("bson unmarshal: %v", err)
	}
	if len(decoded.Recipe) != 1 || decoded.Recipe[0] != "Mix" {
		t.Fatalf("unexpected recipe %v", decoded.Recipe)
	}
}

func TestFoodJSONAlwaysIncludesOfferPrice(t *testing.T) {
	body, err := json.Marshal(Food{Name: "Pilau", Price: 45000})
	if err != nil {
		t.Fatalf("json marshal failed: %v", err)
	}
	if !strings.Contains(string(body), `"offerPrice":null`) {
		t.Fatalf("expected null offerPrice, got %s", body)
	}
	if !strings.Contains(string(body), `"price":450.00`) {
		t.Fatalf("expected decimal price, got %s", body)
	}
}
