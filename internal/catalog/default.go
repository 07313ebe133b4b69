package catalog

import (
	"strconv"

	"github.com/safar/horeca-store/internal/models"
	"github.com/shopspring/decimal"
)

var fallbackVAT = decimal.RequireFromString("0.04")

type entry struct {
	id, name, section string
	unitsPerBox       int
	mlPerUnit         int
	order             int
}

var fallbackEntries = []entry{
	{"F-PET-5L", "PET Filtrado 5L", "PET Filtrado", 3, 5000, 10},
	{"F-PET-2L", "PET Filtrado 2L", "PET Filtrado", 6, 2000, 20},
	{"F-PET-1L", "PET Filtrado 1L", "PET Filtrado", 12, 1000, 30},
	{"F-PET-500", "PET Filtrado 500ml", "PET Filtrado", 20, 500, 40},
	{"F-VT-750", "Vidrio Filtrado 750ml", "Vidrio Filtrado", 15, 750, 50},
	{"F-VT-500", "Vidrio Filtrado 500ml", "Vidrio Filtrado", 24, 500, 60},
	{"SF-PET-5L", "PET Sin Filtrar 5L", "PET Sin Filtrar", 3, 5000, 70},
	{"SF-PET-2L", "PET Sin Filtrar 2L", "PET Sin Filtrar", 6, 2000, 80},
	{"SF-PET-1L", "PET Sin Filtrar 1L", "PET Sin Filtrar", 15, 1000, 90},
	{"SF-PET-500", "PET Sin Filtrar 500ml", "PET Sin Filtrar", 20, 500, 100},
	{"MONO-AOVE", "Monodosis AOVE 20ml", "Monodosis AOVE", 160, 20, 110},
	{"SF-VT-750", "Vidrio Sin Filtrar 750ml", "Vidrio Sin Filtrar", 15, 750, 120},
	{"SF-VT-500", "Vidrio Sin Filtrar 500ml", "Vidrio Sin Filtrar", 24, 500, 130},
	{"VO-L-5L", "Verde Oleum Lata 5L", "Verde Oleum", 4, 5000, 140},
	{"VO-L-750", "Verde Oleum Lata 750ml", "Verde Oleum", 15, 750, 150},
	{"VO-B-500", "Verde Oleum Bot. 500ml", "Verde Oleum", 15, 500, 160},
	{"VO-L-250", "Verde Oleum Lata 250ml", "Verde Oleum", 28, 250, 170},
	{"VO-B-250", "Verde Oleum Bot. 250ml", "Verde Oleum", 30, 250, 180},
	{"DEL-500", "Delirium 500ml", "Delirium", 1, 500, 190},
}

// Default returns a fresh copy of the distributor's product range. It carries
// no prices: lines priced against it alone come out at zero.
func Default() []models.Product {
	products := make([]models.Product, 0, len(fallbackEntries))
	for _, e := range fallbackEntries {
		products = append(products, models.Product{
			ID:           e.id,
			Name:         e.name,
			Description:  boxDescription(e.unitsPerBox),
			Section:      e.section,
			BasePrice:    decimal.Zero,
			VATRate:      fallbackVAT,
			UnitsPerBox:  e.unitsPerBox,
			MLPerUnit:    e.mlPerUnit,
			Active:       true,
			DisplayOrder: e.order,
		})
	}
	return products
}

func boxDescription(units int) string {
	if units <= 1 {
		return "Unidad"
	}
	return "Caja " + strconv.Itoa(units) + " ud"
}
