package models

// CatalogCategory is read-only reference data from the catalog collection.
type CatalogCategory struct {
	ID            string   `firestore:"-" json:"id"`
	Name          string   `firestore:"name" json:"name"`
	Slug          string   `firestore:"slug" json:"slug"`
	Icon          string   `firestore:"icon,omitempty" json:"icon,omitempty"`
	Subcategories []string `firestore:"subcategories" json:"subcategories"`
	Order         int      `firestore:"order" json:"order"`
}

// CatalogProduct is read-only reference data from the catalogProducts collection.
type CatalogProduct struct {
	ID             string  `firestore:"-" json:"id"`
	CategoryID     string  `firestore:"categoryId" json:"categoryId"`
	Name           string  `firestore:"name" json:"name"`
	Description    string  `firestore:"description,omitempty" json:"description,omitempty"`
	Unit           string  `firestore:"unit,omitempty" json:"unit,omitempty"`
	SuggestedPrice float64 `firestore:"suggestedPrice" json:"suggestedPrice"`
}
