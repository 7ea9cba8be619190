package services_test

import (
	"testing"

	"github.com/MegaGrindStone/agrisaarthi-web/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownRender(t *testing.T) {
	md := services.NewMarkdown()

	tests := []struct {
		name        string
		source      string
		contains    []string
		notContains []string
	}{
		{
			name:     "emphasis and list",
			source:   "**Urea** doses:\n\n- basal\n- top dressing",
			contains: []string{"<strong>Urea</strong>", "<li>basal</li>"},
		},
		{
			name:     "table",
			source:   "| crop | price |\n|---|---|\n| wheat | 2275 |",
			contains: []string{"<table>", "<td>wheat</td>"},
		},
		{
			name:        "raw html is dropped",
			source:      "<script>alert(1)</script>",
			notContains: []string{"<script>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := md.Render(tt.source)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, got, s)
			}
		})
	}
}
