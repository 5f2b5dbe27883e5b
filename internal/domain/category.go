package domain

import "time"

// IssueType classifies tickets and categories.
type IssueType string

const (
	IssueTypeHardware IssueType = "Hardware"
	IssueTypeSoftware IssueType = "Software"
)

// Valid reports whether t is a known issue type.
func (t IssueType) Valid() bool {
	return t == IssueTypeHardware || t == IssueTypeSoftware
}

// Category is a named taxonomy node. Tickets refer to it by name, so renames
// and deletes never cascade.
type Category struct {
	ID            string
	Name          string
	Type          IssueType
	Subcategories []string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasSubcategory reports whether name is already listed.
func (c *Category) HasSubcategory(name string) bool {
	for _, sub := range c.Subcategories {
		if sub == name {
			return true
		}
	}
	return false
}
