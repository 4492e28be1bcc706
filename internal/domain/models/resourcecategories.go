// internal/domain/models/resourcecategories.go
package models

// Canonical resource category identifiers.
//
// These values are stored in Resource.Category and are used as stable keys
// for filtering. Display labels belong to the client.
const (
	CategoryHealth           = "health"
	CategoryMentalHealth     = "mental_health"
	CategoryLegal            = "legal"
	CategoryHousing          = "housing"
	CategoryFood             = "food"
	CategoryEmployment       = "employment"
	CategoryEducation        = "education"
	CategoryFinancial        = "financial"
	CategoryTransportation   = "transportation"
	CategoryImmigration      = "immigration"
	CategoryLGBTQ            = "lgbtq"
	CategoryDisability       = "disability"
	CategoryVeterans         = "veterans"
	CategoryYouth            = "youth"
	CategorySeniors          = "seniors"
	CategoryDomesticViolence = "domestic_violence"
	CategorySubstanceUse     = "substance_use"
	CategoryOther            = "other"
)

// ResourceCategories is the full set of allowed category identifiers.
var ResourceCategories = []string{
	CategoryHealth,
	CategoryMentalHealth,
	CategoryLegal,
	CategoryHousing,
	CategoryFood,
	CategoryEmployment,
	CategoryEducation,
	CategoryFinancial,
	CategoryTransportation,
	CategoryImmigration,
	CategoryLGBTQ,
	CategoryDisability,
	CategoryVeterans,
	CategoryYouth,
	CategorySeniors,
	CategoryDomesticViolence,
	CategorySubstanceUse,
	CategoryOther,
}

// IsValidCategory reports whether c is one of ResourceCategories.
func IsValidCategory(c string) bool {
	for _, v := range ResourceCategories {
		if v == c {
			return true
		}
	}
	return false
}
