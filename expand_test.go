package aksara

import (
	"reflect"
	"testing"
)

func TestExpand(t *testing.T) {
	table := DefaultSynonyms()

	tests := []struct {
		name   string
		query  string
		fanOut int
		want   []string
	}{
		{
			name:   "substitutes in table order",
			query:  "program studi STEI",
			fanOut: 3,
			want:   []string{"program studi STEI", "prodi STEI", "jurusan STEI"},
		},
		{
			name:   "no matching term yields original only",
			query:  "kapan wisuda tahun ini",
			fanOut: 5,
			want:   []string{"kapan wisuda tahun ini"},
		},
		{
			name:   "fan out one returns original only",
			query:  "program studi STEI",
			fanOut: 1,
			want:   []string{"program studi STEI"},
		},
		{
			name:   "case insensitive match preserves rest of query",
			query:  "Berapa BIAYA kuliah?",
			fanOut: 2,
			want:   []string{"Berapa BIAYA kuliah?", "Berapa ukt kuliah?"},
		},
		{
			// Lowercasing can change a rune's byte length (Ⱥ U+023A grows
			// when folded), so match offsets must come from the original
			// string, not its lowered copy.
			name:   "rune that grows when lowercased before the match",
			query:  "Ⱥ biaya kuliah",
			fanOut: 2,
			want:   []string{"Ⱥ biaya kuliah", "Ⱥ ukt kuliah"},
		},
		{
			name:   "grown rune with match at end of query",
			query:  "Ⱥ biaya",
			fanOut: 2,
			want:   []string{"Ⱥ biaya", "Ⱥ ukt"},
		},
		{
			name:   "zero fan out uses default cap",
			query:  "biaya pendaftaran",
			fanOut: 0,
			// "biaya" has 3 alternates, "pendaftaran" has 2; capped at 5.
			want: []string{
				"ukt pendaftaran",
				"spp pendaftaran",
				"biaya pendidikan pendaftaran",
				"biaya admisi",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Expand(tt.query, tt.fanOut)
			if tt.name == "zero fan out uses default cap" {
				if len(got) != 5 || got[0] != tt.query {
					t.Fatalf("Expand() = %v, want 5 variants starting with %q", got, tt.query)
				}
				if !reflect.DeepEqual(got[1:], tt.want) {
					t.Errorf("Expand()[1:] = %v, want %v", got[1:], tt.want)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpandOriginalAlwaysFirst(t *testing.T) {
	got := DefaultSynonyms().Expand("biaya ukt prodi", 5)
	if len(got) == 0 || got[0] != "biaya ukt prodi" {
		t.Fatalf("variant 0 = %v, want original query first", got)
	}
}
