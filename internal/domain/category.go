package domain

import "strings"

// Category is a navigational grouping. Products reference it by Name.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required,max=80"`
	Slug string `json:"slug"`
	Icon string `json:"icon" validate:"max=16"`
}

// FindCategoryBySlug returns the category with the given slug.
func FindCategoryBySlug(categories []Category, slug string) (Category, bool) {
	for _, c := range categories {
		if c.Slug == slug {
			return c, true
		}
	}
	return Category{}, false
}

// HasCategoryName reports whether any category carries the given name.
// Comparison is exact after trimming, matching how products reference names.
func HasCategoryName(categories []Category, name string) bool {
	name = strings.TrimSpace(name)
	for _, c := range categories {
		if c.Name == name {
			return true
		}
	}
	return false
}
