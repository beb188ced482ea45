package aksara

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want AnswerPayload
	}{
		{
			name: "reasoning preamble then structured answer",
			raw:  "<think>the user asks about tuition</think>\n{\"answer\": \"UKT ITB berkisar Rp0 sampai Rp12,5 juta.\", \"sources\": []}",
			want: AnswerPayload{Answer: "UKT ITB berkisar Rp0 sampai Rp12,5 juta.", Sources: []Source{}},
		},
		{
			name: "fenced json block",
			raw:  "Here is the answer:\n```json\n{\"answer\": \"Pendaftaran dibuka Januari.\", \"sources\": [{\"title\": \"Kalender\", \"quote\": \"dibuka Januari\", \"source_url\": \"https://itb.ac.id\"}]}\n```",
			want: AnswerPayload{
				Answer:  "Pendaftaran dibuka Januari.",
				Sources: []Source{{Title: "Kalender", Quote: "dibuka Januari", SourceURL: "https://itb.ac.id"}},
			},
		},
		{
			name: "plain text degrades to verbatim",
			raw:  "Maaf, saya tidak menemukan informasi tersebut.",
			want: AnswerPayload{Answer: "Maaf, saya tidak menemukan informasi tersebut.", Sources: []Source{}},
		},
		{
			name: "leading think line",
			raw:  "think: I should check the documents\n{\"answer\": \"test\"}",
			want: AnswerPayload{Answer: "test", Sources: []Source{}},
		},
		{
			name: "json wrapped in prose",
			raw:  "Tentu! {\"answer\": \"Prodi STEI ada 6.\", \"sources\": []} Semoga membantu.",
			want: AnswerPayload{Answer: "Prodi STEI ada 6.", Sources: []Source{}},
		},
		{
			name: "null sources becomes empty slice",
			raw:  `{"answer": "ya", "sources": null}`,
			want: AnswerPayload{Answer: "ya", Sources: []Source{}},
		},
		{
			name: "missing answer field degrades to verbatim",
			raw:  `{"jawaban": "salah kunci"}`,
			want: AnswerPayload{Answer: `{"jawaban": "salah kunci"}`, Sources: []Source{}},
		},
		{
			name: "empty input yields sentinel",
			raw:  "",
			want: AnswerPayload{Answer: "", Sources: []Source{}},
		},
		{
			name: "only reasoning yields sentinel",
			raw:  "<think>hmm</think>",
			want: AnswerPayload{Answer: "", Sources: []Source{}},
		},
		{
			name: "unclosed think tag keeps content",
			raw:  "<think>{\"answer\": \"masih terbaca\"}",
			want: AnswerPayload{Answer: "masih terbaca", Sources: []Source{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtractNeverPanicsOrNils(t *testing.T) {
	inputs := []string{
		"```",
		"``````",
		"{",
		"}{",
		"<reasoning>",
		"\x00\xff",
		"{\"answer\": 42}",
	}
	for _, in := range inputs {
		got := Extract(in)
		if got.Sources == nil {
			t.Errorf("Extract(%q).Sources is nil, want empty slice", in)
		}
	}
}
