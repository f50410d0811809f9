package detector

import "strings"

type Dataset string

const (
	Airline        Dataset = "airline"
	Passenger      Dataset = "passenger"
	Flight         Dataset = "flight"
	Airport        Dataset = "airport"
	TravelAgency   Dataset = "travelagency"
	CorporateSales Dataset = "corporatesales"
)

// Default is returned whenever detection finds no usable signal.
const Default = Airline

var datasetAliases = map[string]Dataset{
	"airline":         Airline,
	"airlines":        Airline,
	"passenger":       Passenger,
	"passengers":      Passenger,
	"flight":          Flight,
	"flights":         Flight,
	"airport":         Airport,
	"airports":        Airport,
	"travelagency":    TravelAgency,
	"travel_agency":   TravelAgency,
	"corporatesales":  CorporateSales,
	"corporate_sales": CorporateSales,
}

// All lists every dataset in catalog order. Ties are reported against this order.
func All() []Dataset {
	return []Dataset{Airline, Passenger, Flight, Airport, TravelAgency, CorporateSales}
}

func (d Dataset) String() string {
	return string(d)
}

func (d Dataset) Valid() bool {
	for _, known := range All() {
		if d == known {
			return true
		}
	}
	return false
}

// Parse accepts the canonical identifiers plus the plural and snake_case
// aliases older clients send.
func Parse(s string) (Dataset, bool) {
	d, ok := datasetAliases[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

func ParseOrDefault(s string) Dataset {
	if d, ok := Parse(s); ok {
		return d
	}
	return Default
}
