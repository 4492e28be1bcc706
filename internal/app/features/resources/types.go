// internal/app/features/resources/types.go
package resources

import (
	"github.com/advocacy-resources/advo-sub000/internal/app/system/htmlsanitize"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/normalize"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
)

// resourceInput is the request body for creating or replacing a resource.
type resourceInput struct {
	Name                string                         `json:"name" validate:"required,max=200"`
	Description         string                         `json:"description" validate:"max=20000"`
	Category            []string                       `json:"category" validate:"required,min=1,max=10,dive,category"`
	Type                []string                       `json:"type" validate:"max=20,dive,max=100"`
	Tags                []string                       `json:"tags" validate:"max=50,dive,max=100"`
	ServicesProvided    []string                       `json:"services_provided" validate:"max=50,dive,max=200"`
	EligibilityCriteria string                         `json:"eligibility_criteria" validate:"max=5000"`
	Contact             contactInput                   `json:"contact"`
	Address             addressInput                   `json:"address"`
	OperatingHours      map[string]models.OperatingDay `json:"operating_hours" validate:"max=7,dive,keys,oneof=monday tuesday wednesday thursday friday saturday sunday,endkeys"`
	ImageURL            string                         `json:"image_url" validate:"omitempty,url,max=2048"`
	BannerURL           string                         `json:"banner_url" validate:"omitempty,url,max=2048"`
}

type contactInput struct {
	Phone   string `json:"phone" validate:"max=40"`
	Email   string `json:"email" validate:"omitempty,email,max=254"`
	Website string `json:"website" validate:"omitempty,url,max=2048"`
}

type addressInput struct {
	Street  string `json:"street" validate:"max=200"`
	City    string `json:"city" validate:"max=100"`
	State   string `json:"state" validate:"max=50"`
	ZipCode string `json:"zip_code" validate:"omitempty,zipcode"`
	Country string `json:"country" validate:"max=100"`
}

// normalize trims and canonicalizes the input in place before validation.
func (in *resourceInput) normalize() {
	in.Name = normalize.Name(in.Name)
	in.Category = normalize.List(in.Category)
	in.Tags = normalize.List(in.Tags)
	in.Type = normalize.TextList(in.Type)
	in.ServicesProvided = normalize.TextList(in.ServicesProvided)
	in.Contact.Email = normalize.Email(in.Contact.Email)
	in.Address.ZipCode = normalize.ZipCode(in.Address.ZipCode)
	in.Address.State = normalize.Name(in.Address.State)
	in.Address.City = normalize.Name(in.Address.City)

	if len(in.OperatingHours) > 0 {
		hours := make(map[string]models.OperatingDay, len(in.OperatingHours))
		for day, v := range in.OperatingHours {
			hours[normalize.Role(day)] = v
		}
		in.OperatingHours = hours
	}
}

// toModel converts validated input into the stored shape. The description
// is sanitized HTML; plain text is wrapped into paragraphs.
func (in resourceInput) toModel() models.Resource {
	return models.Resource{
		Name:                in.Name,
		Description:         htmlsanitize.Description(in.Description),
		Category:            in.Category,
		Type:                in.Type,
		Tags:                in.Tags,
		ServicesProvided:    in.ServicesProvided,
		EligibilityCriteria: htmlsanitize.StripTags(in.EligibilityCriteria),
		Contact: models.Contact{
			Phone:   normalize.QueryParam(in.Contact.Phone),
			Email:   in.Contact.Email,
			Website: normalize.QueryParam(in.Contact.Website),
		},
		Address: models.Address{
			Street:  normalize.Name(in.Address.Street),
			City:    in.Address.City,
			State:   in.Address.State,
			ZipCode: in.Address.ZipCode,
			Country: normalize.Name(in.Address.Country),
		},
		OperatingHours: in.OperatingHours,
		ImageURL:       in.ImageURL,
		BannerURL:      in.BannerURL,
	}
}
