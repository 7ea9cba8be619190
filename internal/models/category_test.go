package models_test

import (
	"testing"

	"github.com/MegaGrindStone/agrisaarthi-web/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCategoryDirectoryCategories(t *testing.T) {
	tests := []struct {
		name string
		dir  models.CategoryDirectory
		want []models.Category
	}{
		{
			name: "empty",
			dir:  models.CategoryDirectory{},
			want: []models.Category{},
		},
		{
			name: "descriptions and fallback",
			dir: models.CategoryDirectory{
				PrimaryCategories: []string{"weather_info", "crop_info", "soil_info"},
				Descriptions: map[string]string{
					"weather_info": "Weather advice",
					"soil_info":    "",
				},
			},
			want: []models.Category{
				{Name: "weather_info", Description: "Weather advice"},
				{Name: "crop_info", Description: models.DefaultCategoryDescription},
				{Name: "soil_info", Description: models.DefaultCategoryDescription},
			},
		},
		{
			name: "descriptions without categories are ignored",
			dir: models.CategoryDirectory{
				PrimaryCategories: []string{"market_info"},
				Descriptions:      map[string]string{"finance_info": "Loans"},
			},
			want: []models.Category{
				{Name: "market_info", Description: models.DefaultCategoryDescription},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dir.Categories())
		})
	}
}
