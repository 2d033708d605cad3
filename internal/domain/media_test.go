package domain

import "testing"

func TestQualityValid(t *testing.T) {
	for _, q := range SupportedQualities() {
		if !q.Valid() {
			t.Errorf("%s should be valid", q)
		}
	}

	for _, raw := range []string{"", "480q", "720", "4k", "1080P", "foo"} {
		if Quality(raw).Valid() {
			t.Errorf("%q should be invalid", raw)
		}
	}
}

func TestSupportedQualitiesOrder(t *testing.T) {
	qualities := SupportedQualities()
	if len(qualities) != 8 {
		t.Fatalf("expected 8 qualities, got %d", len(qualities))
	}
	if qualities[0] != Quality144p {
		t.Errorf("first = %s, want 144p", qualities[0])
	}
	if qualities[len(qualities)-1] != Quality2160p {
		t.Errorf("last = %s, want 2160p", qualities[len(qualities)-1])
	}
	if TopQuality != Quality2160p {
		t.Errorf("TopQuality = %s, want 2160p", TopQuality)
	}
}

func TestEncodingHDR(t *testing.T) {
	tests := []struct {
		name string
		enc  Encoding
		want bool
	}{
		{"bt2020 primaries", Encoding{ColorPrimaries: ColorPrimariesBT2020}, true},
		{"smpte2084 transfer", Encoding{ColorTransfer: ColorTransferSMPTE2084}, true},
		{"both set", Encoding{ColorPrimaries: ColorPrimariesBT2020, ColorTransfer: ColorTransferSMPTE2084}, true},
		{"sdr", Encoding{ColorPrimaries: "bt709", ColorTransfer: "bt709"}, false},
		{"empty", Encoding{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.enc.HDR(); got != tt.want {
				t.Errorf("HDR() = %v, want %v", got, tt.want)
			}
		})
	}
}
