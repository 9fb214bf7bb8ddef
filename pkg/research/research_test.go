package research

import (
	"reflect"
	"testing"
)

func TestParseNameList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "bare array",
			input: `["Acme Foundation", "Open Fields"]`,
			want:  []string{"Acme Foundation", "Open Fields"},
		},
		{
			name:  "code fence",
			input: "```json\n[\"Acme Foundation\"]\n```",
			want:  []string{"Acme Foundation"},
		},
		{
			name:  "wrapped object",
			input: `{"organizations": ["Acme Foundation", "Open Fields"]}`,
			want:  []string{"Acme Foundation", "Open Fields"},
		},
		{
			name:  "trailing comma repaired",
			input: `["Acme Foundation", "Open Fields",]`,
			want:  []string{"Acme Foundation", "Open Fields"},
		},
		{
			name:  "unquoted keys repaired",
			input: `{organizations: ["Acme Foundation"]}`,
			want:  []string{"Acme Foundation"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNameList(tt.input)
			if err != nil {
				t.Fatalf("ParseNameList(%q) error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseNameList(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseNameListRejectsProse(t *testing.T) {
	if _, err := ParseNameList("I could not find any organizations."); err == nil {
		t.Fatal("expected an error for a prose answer")
	}
}
