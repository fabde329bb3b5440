package models

import "testing"

func TestCartAddRemoveScenario(t *testing.T) {
	var cart CartData

	cart.Add("food123")
	if cart["food123"] != 1 {
		t.Fatalf("expected quantity 1, got %v", cart)
	}
	cart.Add("food123")
	if cart["food123"] != 2 {
		t.Fatalf("expected quantity 2, got %v", cart)
	}

	cart.Remove("food123")
	if cart["food123"] != 1 {
		t.Fatalf("expected quantity 1 after remove, got %v", cart)
	}
	cart.Remove("food123")
	cart.Remove("food123")
	if _, ok := cart["food123"]; ok {
		t.Fatalf("expected key removed, got %v", cart)
	}
	if len(cart) != 0 {
		t.Fatalf("expected empty cart, got %v", cart)
	}
}

func TestCartRemoveAbsentItemIsNoop(t *testing.T) {
	cart := CartData{"a": 2}
	cart.Remove("b")
	if len(cart) != 1 || cart["a"] != 2 {
		t.Fatalf("unexpected cart %v", cart)
	}
}

func TestCartNormalizeDropsZeroQuantities(t *testing.T) {
	cart := CartData{"a": 0, "b": 3, "c": -1}.Normalize()
	if len(cart) != 1 || cart["b"] != 3 {
		t.Fatalf("unexpected cart %v", cart)
	}
	if CartData(nil).Normalize() == nil {
		t.Fatal("expected non-nil cart")
	}
}

func TestValidateCartItemID(t *testing.T) {
	valid := []string{"food123", "64b7f0c2a1b2c3d4e5f60718"}
	for _, id := range valid {
		if err := ValidateCartItemID(id); err != nil {
			t.Fatalf("expected %q to be valid: %v", id, err)
		}
	}
	invalid := []string{"", " ", "a.b", "$set", " padded"}
	for _, id := range invalid {
		if err := ValidateCartItemID(id); err == nil {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
}
