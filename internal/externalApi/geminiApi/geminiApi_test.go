package geminiApi

import "testing"

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "bare array",
			in:   `[{"name":"Safaricom","price":15.5}]`,
			want: `[{"name":"Safaricom","price":15.5}]`,
		},
		{
			name: "markdown fenced",
			in:   "```json\n[{\"name\":\"Safaricom\",\"price\":15.5}]\n```",
			want: `[{"name":"Safaricom","price":15.5}]`,
		},
		{
			name: "commentary around the array",
			in:   `Here is the cleaned data: [{"name":"KCB","price":30}] Hope that helps!`,
			want: `[{"name":"KCB","price":30}]`,
		},
		{
			name: "nested arrays keep outermost bounds",
			in:   `x [[1,2],[3]] y`,
			want: `[[1,2],[3]]`,
		},
		{
			name:    "no array",
			in:      `sorry, I cannot help with that`,
			wantErr: true,
		},
		{
			name:    "mismatched brackets",
			in:      `] broken [`,
			wantErr: true,
		},
		{
			name:    "empty input",
			in:      ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONArray(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("want error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
