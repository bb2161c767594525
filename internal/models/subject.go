// internal/models/subject.go
package models

import "time"

type Subject struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	Chapters    []Chapter `json:"chapters,omitempty"`
}

type Chapter struct {
	ID           string    `json:"id"`
	SubjectID    string    `json:"subjectId"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"displayOrder"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CatalogueEntry is a seeded subject with its chapters in NCERT order.
type CatalogueEntry struct {
	Name        string
	Code        string
	Description string
	Chapters    []string
}

// Catalogue is the CBSE Class 12 Commerce syllabus.
var Catalogue = []CatalogueEntry{
	{
		Name:        "Accountancy",
		Code:        "ACC",
		Description: "CBSE Class 12 Accountancy - Financial Statements, Partnership, Company Accounts",
		Chapters: []string{
			"Accounting for Partnership: Basic Concepts",
			"Reconstitution of a Partnership Firm – Admission of a Partner",
			"Reconstitution of a Partnership Firm – Retirement/Death of a Partner",
			"Dissolution of Partnership Firm",
			"Accounting for Share Capital",
			"Issue and Redemption of Debentures",
			"Financial Statements of a Company",
			"Analysis of Financial Statements",
			"Accounting Ratios",
			"Cash Flow Statement",
		},
	},
	{
		Name:        "Economics",
		Code:        "ECO",
		Description: "CBSE Class 12 Economics - Micro and Macroeconomics",
		Chapters: []string{
			"Introduction to Microeconomics",
			"Theory of Consumer Behaviour",
			"Production and Costs",
			"The Theory of the Firm under Perfect Competition",
			"Market Equilibrium",
			"Non-competitive Markets",
			"Introduction to Macroeconomics",
			"National Income Accounting",
			"Money and Banking",
			"Income Determination",
		},
	},
	{
		Name:        "Business Studies",
		Code:        "BST",
		Description: "CBSE Class 12 Business Studies - Principles and Functions of Management",
		Chapters: []string{
			"Nature and Significance of Management",
			"Principles of Management",
			"Business Environment",
			"Planning",
			"Organising",
			"Staffing",
			"Directing",
			"Controlling",
			"Financial Management",
			"Marketing Management",
		},
	},
}

// SubjectNames lists the catalogue subjects in order.
func SubjectNames() []string {
	names := make([]string, 0, len(Catalogue))
	for _, e := range Catalogue {
		names = append(names, e.Name)
	}
	return names
}

// IsKnownSubject reports whether name is a catalogue subject. The match is exact.
func IsKnownSubject(name string) bool {
	for _, e := range Catalogue {
		if e.Name == name {
			return true
		}
	}
	return false
}
