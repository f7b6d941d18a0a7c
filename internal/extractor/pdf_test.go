package extractor

import "testing"

func TestExtractText_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("Kaspi Gold statement, definitely not a PDF")},
		{"truncated header", []byte("%PDF-1.4\n%")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExtractText(tt.data); err == nil {
				t.Error("ExtractText() succeeded, want error")
			}
		})
	}
}
