package pricing

import "strings"

type ItemType string

const (
	ItemTypeAccommodation ItemType = "accommodation"
	ItemTypeService       ItemType = "service"
	ItemTypeFee           ItemType = "fee"
	ItemTypeTax           ItemType = "tax"
	ItemTypeDiscount      ItemType = "discount"
)

func ParseItemType(raw string) (ItemType, bool) {
	t := ItemType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case ItemTypeAccommodation, ItemTypeService, ItemTypeFee, ItemTypeTax, ItemTypeDiscount:
		return t, true
	}
	return "", false
}

// Taxable reports whether tax rates may be resolved against this item.
// Manual tax rows and discount rows never attract tax themselves.
func (t ItemType) Taxable() bool {
	return t != ItemTypeTax && t != ItemTypeDiscount
}

type Unit string

const (
	UnitNight  Unit = "night"
	UnitPerson Unit = "person"
	UnitUnit   Unit = "unit"
	UnitTrip   Unit = "trip"
	UnitHour   Unit = "hour"
	UnitItem   Unit = "item"
)

func ParseUnit(raw string) (Unit, bool) {
	u := Unit(strings.ToLower(strings.TrimSpace(raw)))
	switch u {
	case UnitNight, UnitPerson, UnitUnit, UnitTrip, UnitHour, UnitItem:
		return u, true
	}
	return "", false
}

// ScalesFixedTax reports whether fixed-amount taxes are charged per unit of
// quantity (per night, per person) rather than once per line.
func (u Unit) ScalesFixedTax() bool {
	return u == UnitNight || u == UnitPerson
}
