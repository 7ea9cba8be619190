package models

// DefaultCategoryDescription is shown for a category the directory has no description for.
const DefaultCategoryDescription = "Agricultural information and advice"

// Category is a question topic offered on the home screen.
type Category struct {
	Name        string
	Description string
}

// CategoryDirectory is the category listing returned by the remote API.
type CategoryDirectory struct {
	PrimaryCategories []string          `json:"primary_categories"`
	Descriptions      map[string]string `json:"descriptions"`
}

// Categories pairs every primary category with its description, preserving the directory order.
// Categories without a description get DefaultCategoryDescription.
func (d CategoryDirectory) Categories() []Category {
	categories := make([]Category, 0, len(d.PrimaryCategories))
	for _, name := range d.PrimaryCategories {
		desc, ok := d.Descriptions[name]
		if !ok || desc == "" {
			desc = DefaultCategoryDescription
		}
		categories = append(categories, Category{
			Name:        name,
			Description: desc,
		})
	}
	return categories
}
