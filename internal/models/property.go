package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/joshua-takyi/homeswift/internal/query"
)

const (
	StatusActive  = "active"
	StatusPending = "pending"
	StatusSold    = "sold"
	StatusDeleted = "deleted"
)

type Property struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID            uuid.UUID       `gorm:"type:uuid;index;not null" json:"agent_id"`
	Title              string          `gorm:"size:255;not null" json:"title" validate:"required,max=255"`
	Description        string          `gorm:"type:text" json:"description"`
	Price              float64         `gorm:"type:numeric(14,2);not null" json:"price" validate:"gte=0"`
	Address            string          `json:"address"`
	City               string          `gorm:"index" json:"city" validate:"required"`
	State              string          `json:"state"`
	PostalCode         string          `gorm:"size:20" json:"postal_code"`
	Country            string          `gorm:"size:2;default:US" json:"country"`
	Latitude           *float64        `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude          *float64        `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Bedrooms           int             `gorm:"not null;default:0" json:"bedrooms" validate:"gte=0"`
	Bathrooms          float64         `gorm:"type:numeric(4,1);not null;default:0" json:"bathrooms" validate:"gte=0"`
	AreaSqft           int             `gorm:"not null;default:0" json:"area_sqft" validate:"gte=0"`
	LotSize            *int            `json:"lot_size,omitempty" validate:"omitempty,gte=0"`
	YearBuilt          *int            `json:"year_built,omitempty" validate:"omitempty,gte=1800,lte=2100"`
	PropertyType       string          `gorm:"size:20;not null" json:"property_type" validate:"required,oneof=house apartment condo townhouse land commercial"`
	ListingType        string          `gorm:"size:10;not null" json:"listing_type" validate:"required,oneof=sale rent"`
	Status             string          `gorm:"size:10;not null;default:active;index" json:"status" validate:"oneof=active pending sold deleted"`
	HasGarage          bool            `json:"has_garage"`
	HasPool            bool            `json:"has_pool"`
	HasGarden          bool            `json:"has_garden"`
	HasAirConditioning bool            `json:"has_air_conditioning"`
	IsFurnished        bool            `json:"is_furnished"`
	PetsAllowed        bool            `json:"pets_allowed"`
	IsFeatured         bool            `gorm:"index" json:"is_featured"`
	ViewCount          int64           `gorm:"not null;default:0" json:"view_count"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Images             []PropertyImage `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"images"`
}

func (Property) TableName() string { return PropertiesTable }

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	p.prepare()
	return nil
}

func (p *Property) prepare() {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.Country == "" {
		p.Country = "US"
	}
	for i := range p.Images {
		p.Images[i].PropertyID = p.ID
	}
}

func (p *Property) IsDeleted() bool { return p.Status == StatusDeleted }

// PrimaryImage returns the primary image, or nil when the property has none.
func (p *Property) PrimaryImage() *PropertyImage {
	for i := range p.Images {
		if p.Images[i].IsPrimary {
			return &p.Images[i]
		}
	}
	return nil
}

// SortImages orders images by position, then creation time.
func (p *Property) SortImages() {
	sort.SliceStable(p.Images, func(i, j int) bool {
		if p.Images[i].Order != p.Images[j].Order {
			return p.Images[i].Order < p.Images[j].Order
		}
		return p.Images[i].CreatedAt.Before(p.Images[j].CreatedAt)
	})
}

// FieldValue exposes columns to query.Apply.
func (p *Property) FieldValue(field string) (any, bool) {
	switch field {
	case query.FieldID:
		return p.ID.String(), true
	case query.FieldAgentID:
		return p.AgentID.String(), true
	case query.FieldTitle:
		return p.Title, true
	case query.FieldDescription:
		return p.Description, true
	case query.FieldAddress:
		return p.Address, true
	case query.FieldCity:
		return p.City, true
	case query.FieldState:
		return p.State, true
	case query.FieldPostalCode:
		return p.PostalCode, true
	case query.FieldPrice:
		return p.Price, true
	case query.FieldBedrooms:
		return p.Bedrooms, true
	case query.FieldBathrooms:
		return p.Bathrooms, true
	case query.FieldAreaSqft:
		return p.AreaSqft, true
	case query.FieldYearBuilt:
		return p.YearBuilt, true
	case query.FieldPropertyType:
		return p.PropertyType, true
	case query.FieldListingType:
		return p.ListingType, true
	case query.FieldStatus:
		return p.Status, true
	case query.FieldIsFeatured:
		return p.IsFeatured, true
	case query.FieldHasGarage:
		return p.HasGarage, true
	case query.FieldHasPool:
		return p.HasPool, true
	case query.FieldHasGarden:
		return p.HasGarden, true
	case query.FieldHasAirConditioning:
		return p.HasAirConditioning, true
	case query.FieldIsFurnished:
		return p.IsFurnished, true
	case query.FieldPetsAllowed:
		return p.PetsAllowed, true
	case query.FieldCreatedAt:
		return p.CreatedAt, true
	case query.FieldUpdatedAt:
		return p.UpdatedAt, true
	}
	return nil, false
}

// Columns returns the writable columns keyed by name, images excluded.
func (p *Property) Columns() map[string]any {
	return map[string]any{
		"id":                          p.ID,
		query.FieldAgentID:            p.AgentID,
		query.FieldTitle:              p.Title,
		query.FieldDescription:        p.Description,
		query.FieldPrice:              p.Price,
		query.FieldAddress:            p.Address,
		query.FieldCity:               p.City,
		query.FieldState:              p.State,
		query.FieldPostalCode:         p.PostalCode,
		"country":                     p.Country,
		"latitude":                    p.Latitude,
		"longitude":                   p.Longitude,
		query.FieldBedrooms:           p.Bedrooms,
		query.FieldBathrooms:          p.Bathrooms,
		query.FieldAreaSqft:           p.AreaSqft,
		"lot_size":                    p.LotSize,
		query.FieldYearBuilt:          p.YearBuilt,
		query.FieldPropertyType:       p.PropertyType,
		query.FieldListingType:        p.ListingType,
		query.FieldStatus:             p.Status,
		query.FieldHasGarage:          p.HasGarage,
		query.FieldHasPool:            p.HasPool,
		query.FieldHasGarden:          p.HasGarden,
		query.FieldHasAirConditioning: p.HasAirConditioning,
		query.FieldIsFurnished:        p.IsFurnished,
		query.FieldPetsAllowed:        p.PetsAllowed,
		query.FieldIsFeatured:         p.IsFeatured,
		"view_count":                  p.ViewCount,
		query.FieldCreatedAt:          p.CreatedAt,
		query.FieldUpdatedAt:          p.UpdatedAt,
	}
}

type PropertyImage struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID uuid.UUID `gorm:"type:uuid;index;not null" json:"property_id"`
	URL        string    `gorm:"not null" json:"url" validate:"required,url"`
	IsPrimary  bool      `gorm:"not null;default:false" json:"is_primary"`
	Caption    string    `json:"caption,omitempty"`
	Order      int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt  time.Time `json:"created_at"`
}

func (PropertyImage) TableName() string { return PropertyImagesTable }

func (img *PropertyImage) BeforeCreate(tx *gorm.DB) error {
	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}
	return nil
}

// PropertyInput is the create/update payload. Pointer fields distinguish
// "absent" from "zero" for partial updates. ZipCode and SquareFeet are
// legacy aliases folded into PostalCode and AreaSqft.
type PropertyInput struct {
	Title              *string      `json:"title"`
	Description        *string      `json:"description"`
	Price              *float64     `json:"price"`
	Address            *string      `json:"address"`
	City               *string      `json:"city"`
	State              *string      `json:"state"`
	PostalCode         *string      `json:"postal_code"`
	ZipCode            *string      `json:"zip_code"`
	Country            *string      `json:"country"`
	Latitude           *float64     `json:"latitude"`
	Longitude          *float64     `json:"longitude"`
	Bedrooms           *int         `json:"bedrooms"`
	Bathrooms          *float64     `json:"bathrooms"`
	AreaSqft           *int         `json:"area_sqft"`
	SquareFeet         *int         `json:"square_feet"`
	LotSize            *int         `json:"lot_size"`
	YearBuilt          *int         `json:"year_built"`
	PropertyType       *string      `json:"property_type"`
	ListingType        *string      `json:"listing_type"`
	Status             *string      `json:"status" validate:"omitempty,oneof=active pending sold"`
	HasGarage          *bool        `json:"has_garage"`
	HasPool            *bool        `json:"has_pool"`
	HasGarden          *bool        `json:"has_garden"`
	HasAirConditioning *bool        `json:"has_air_conditioning"`
	IsFurnished        *bool        `json:"is_furnished"`
	PetsAllowed        *bool        `json:"pets_allowed"`
	IsFeatured         *bool        `json:"is_featured"`
	Images             []ImageInput `json:"images" validate:"omitempty,max=20,dive"`
}

type ImageInput struct {
	URL     string `json:"url" validate:"required"`
	Caption string `json:"caption"`
}

// ApplyTo copies every present field onto p. Canonical names win over
// their legacy aliases when both are sent.
func (in *PropertyInput) ApplyTo(p *Property) {
	setString(&p.Title, in.Title)
	setString(&p.Description, in.Description)
	if in.Price != nil {
		p.Price = *in.Price
	}
	setString(&p.Address, in.Address)
	setString(&p.City, in.City)
	setString(&p.State, in.State)
	if in.PostalCode != nil {
		p.PostalCode = *in.PostalCode
	} else {
		setString(&p.PostalCode, in.ZipCode)
	}
	setString(&p.Country, in.Country)
	if in.Latitude != nil {
		p.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		p.Longitude = in.Longitude
	}
	if in.Bedrooms != nil {
		p.Bedrooms = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		p.Bathrooms = *in.Bathrooms
	}
	switch {
	case in.AreaSqft != nil:
		p.AreaSqft = *in.AreaSqft
	case in.SquareFeet != nil:
		p.AreaSqft = *in.SquareFeet
	}
	if in.LotSize != nil {
		p.LotSize = in.LotSize
	}
	if in.YearBuilt != nil {
		p.YearBuilt = in.YearBuilt
	}
	setString(&p.PropertyType, in.PropertyType)
	setString(&p.ListingType, in.ListingType)
	setString(&p.Status, in.Status)
	setBool(&p.HasGarage, in.HasGarage)
	setBool(&p.HasPool, in.HasPool)
	setBool(&p.HasGarden, in.HasGarden)
	setBool(&p.HasAirConditioning, in.HasAirConditioning)
	setBool(&p.IsFurnished, in.IsFurnished)
	setBool(&p.PetsAllowed, in.PetsAllowed)
	setBool(&p.IsFeatured, in.IsFeatured)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
