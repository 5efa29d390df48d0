package search

import (
	"reflect"
	"testing"

	"media-catalog/internal/database"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want database.Predicate
	}{
		{
			name: "empty query",
			raw:  "",
			want: database.Predicate{},
		},
		{
			name: "whitespace only",
			raw:  "  ,  , ",
			want: database.Predicate{},
		},
		{
			name: "single tag",
			raw:  "SFW",
			want: database.Predicate{And: []string{"SFW"}},
		},
		{
			name: "comma means and",
			raw:  "SFW,CG",
			want: database.Predicate{And: []string{"SFW", "CG"}},
		},
		{
			name: "pipe means or",
			raw:  "SFW|NSFW",
			want: database.Predicate{Or: []string{"SFW", "NSFW"}},
		},
		{
			name: "minus means not",
			raw:  "-SFW",
			want: database.Predicate{Not: []string{"SFW"}},
		},
		{
			name: "mixed clauses",
			raw:  "SFW,CG|Sketch,-Monochrome",
			want: database.Predicate{
				And: []string{"SFW"},
				Or:  []string{"CG", "Sketch"},
				Not: []string{"Monochrome"},
			},
		},
		{
			name: "exclusion inside alternatives",
			raw:  "-SFW|CG",
			want: database.Predicate{Or: []string{"CG"}, Not: []string{"SFW"}},
		},
		{
			name: "whitespace around separators",
			raw:  " SFW , CG | Sketch ",
			want: database.Predicate{And: []string{"SFW"}, Or: []string{"CG", "Sketch"}},
		},
		{
			name: "bare minus is dropped",
			raw:  "-,SFW",
			want: database.Predicate{And: []string{"SFW"}},
		},
		{
			name: "empty alternative is dropped",
			raw:  "SFW|",
			want: database.Predicate{Or: []string{"SFW"}},
		},
		{
			name: "tags with inner spaces survive",
			raw:  "Pixel Art,CG",
			want: database.Predicate{And: []string{"Pixel Art", "CG"}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseNeverProducesEmptyTags(t *testing.T) {
	t.Parallel()

	inputs := []string{"", ",", "|", "-", ",,,", "|||", "- , - | -", " , | - "}
	for _, raw := range inputs {
		pred := Parse(raw)
		for _, set := range [][]string{pred.And, pred.Or, pred.Not} {
			for _, tag := range set {
				if tag == "" {
					t.Errorf("Parse(%q) produced empty tag: %+v", raw, pred)
				}
			}
		}
	}
}
