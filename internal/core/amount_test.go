package core

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain integer", in: "15000", want: "15000"},
		{name: "thousands commas stripped", in: "15,000", want: "15000"},
		{name: "decimal places", in: "1234.56", want: "1234.56"},
		{name: "commas and decimals", in: "1,234.56", want: "1234.56"},
		{name: "surrounding whitespace", in: "  42  ", want: "42"},
		{name: "empty", in: "", wantErr: true},
		{name: "whitespace only", in: "   ", wantErr: true},
		{name: "zero rejected", in: "0", wantErr: true},
		{name: "zero decimal rejected", in: "0.00", wantErr: true},
		{name: "negative rejected", in: "-100", wantErr: true},
		{name: "explicit plus rejected", in: "+100", wantErr: true},
		{name: "not a number", in: "abc", wantErr: true},
		{name: "trailing garbage", in: "100x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) = %s, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.in, err)
			}
			if !got.Equal(dec(tt.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
