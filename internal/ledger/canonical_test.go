package ledger

import (
	"strings"
	"testing"
)

func TestEncodeCanonical(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{
			name:    "keys sorted",
			payload: map[string]any{"b": 1, "a": 2, "c": 3},
			want:    `{"a":2,"b":1,"c":3}`,
		},
		{
			name:    "no whitespace",
			payload: map[string]any{"note": "hello world", "n": 5},
			want:    `{"n":5,"note":"hello world"}`,
		},
		{
			name: "nested objects sorted",
			payload: map[string]any{
				"outer": map[string]any{"z": true, "a": false},
			},
			want: `{"outer":{"a":false,"z":true}}`,
		},
		{
			name:    "arrays keep order",
			payload: map[string]any{"xs": []any{3, 1, 2}},
			want:    `{"xs":[3,1,2]}`,
		},
		{
			name:    "money strings untouched",
			payload: map[string]any{"amount_gb": "10.00"},
			want:    `{"amount_gb":"10.00"}`,
		},
		{
			name:    "struct payload",
			payload: TransferPayload{Amount: "2.50", InitiatedBy: "kid-1"},
			want:    `{"amount_gb":"2.50","initiated_by":"kid-1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeCanonical(tt.payload)
			if err != nil {
				t.Fatalf("EncodeCanonical() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EncodeCanonical() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEncodeCanonicalDeterministic(t *testing.T) {
	payload := DailyAllotmentPayload{
		Amount:         "10.00",
		SpendingShare:  "7.00",
		SavingsShare:   "3.00",
		SavingsPercent: 30,
		SavingsEnabled: true,
	}

	first, err := EncodeCanonical(payload)
	if err != nil {
		t.Fatalf("EncodeCanonical() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		got, err := EncodeCanonical(payload)
		if err != nil {
			t.Fatalf("EncodeCanonical() error = %v", err)
		}
		if got != first {
			t.Fatalf("encoding varies between runs: %s vs %s", got, first)
		}
	}
}

func TestComputeHash(t *testing.T) {
	canonical := `{"amount_gb":"10.00"}`
	prev := strings.Repeat("0", 64)

	h1 := ComputeHash(1700000000, "admin-1", "kid-1", "DAILY_ALLOTMENT", canonical, prev)
	h2 := ComputeHash(1700000000, "admin-1", "kid-1", "DAILY_ALLOTMENT", canonical, prev)
	if h1 != h2 {
		t.Errorf("hash not deterministic: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64", len(h1))
	}

	// any single input change must move the hash
	variants := []string{
		ComputeHash(1700000001, "admin-1", "kid-1", "DAILY_ALLOTMENT", canonical, prev),
		ComputeHash(1700000000, "admin-2", "kid-1", "DAILY_ALLOTMENT", canonical, prev),
		ComputeHash(1700000000, "admin-1", "kid-2", "DAILY_ALLOTMENT", canonical, prev),
		ComputeHash(1700000000, "admin-1", "kid-1", "REWARD", canonical, prev),
		ComputeHash(1700000000, "admin-1", "kid-1", "DAILY_ALLOTMENT", `{"amount_gb":"10.01"}`, prev),
		ComputeHash(1700000000, "admin-1", "kid-1", "DAILY_ALLOTMENT", canonical, h1),
	}
	for i, v := range variants {
		if v == h1 {
			t.Errorf("variant %d did not change the hash", i)
		}
	}
}
