package domain

import "testing"

func TestAssetTokenized(t *testing.T) {
	full := Asset{
		ID:                  "villa-1",
		TokenAddress:        "0x0000000000000000000000000000000000000001",
		SaleContractAddress: "0x0000000000000000000000000000000000000002",
		DistributorAddress:  "0x0000000000000000000000000000000000000003",
	}
	if !full.Tokenized() {
		t.Error("asset with all addresses should be tokenized")
	}

	tests := []struct {
		name   string
		mutate func(a *Asset)
	}{
		{"missing token", func(a *Asset) { a.TokenAddress = "" }},
		{"missing sale", func(a *Asset) { a.SaleContractAddress = "" }},
		{"missing distributor", func(a *Asset) { a.DistributorAddress = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := full
			tt.mutate(&a)
			if a.Tokenized() {
				t.Errorf("%s: Tokenized() = true, want false", tt.name)
			}
		})
	}
}
