package crossref

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/notification-engine/internal/model"
)

func TestExtractRefs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Ref
	}{
		{"none", "no codes here", nil},
		{"single project", "Update on PRJ-104 framing", []Ref{{ID: "PRJ-104", Type: model.EntityProject}}},
		{"lowercase", "see tsk-9", []Ref{{ID: "TSK-9", Type: model.EntityTask}}},
		{
			name: "dedupe keeps first order",
			text: "DOC-3 and PRJ-1, again DOC-3",
			want: []Ref{
				{ID: "DOC-3", Type: model.EntityDocument},
				{ID: "PRJ-1", Type: model.EntityProject},
			},
		},
		{"not a word boundary", "XPRJ-12", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractRefs(tt.text))
		})
	}
}

func TestFirstRefPrefersTasks(t *testing.T) {
	ref, ok := FirstRef("PRJ-7 weekly report", "blocking TSK-31 on site")
	assert.True(t, ok)
	assert.Equal(t, Ref{ID: "TSK-31", Type: model.EntityTask}, ref)

	_, ok = FirstRef("nothing", "")
	assert.False(t, ok)
}
