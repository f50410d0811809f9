package detector

// catalog is the only source of detection signal. It is never mutated after
// package initialisation; accessors hand out copies.
var catalog = map[Dataset][]string{
	Airline:        {"airlinekey", "airline_key", "airlinename", "airline_name", "alliance", "callsign"},
	Passenger:      {"passengerkey", "passenger_id", "first_name", "last_name", "loyalty", "date_of_birth"},
	Flight:         {"flightkey", "originairportkey", "destinationairportkey", "aircrafttype", "flight_number"},
	Airport:        {"airportkey", "airportname", "airport_name", "city", "latitude", "longitude"},
	TravelAgency:   {"agencykey", "agency_id", "agencyname", "booking", "saleamount", "sale_amount"},
	CorporateSales: {"corporate_id", "corp_id", "invoice", "contract_value", "unitprice", "currency"},
}

// Keywords returns the ordered keyword list for a dataset.
func Keywords(d Dataset) []string {
	keywords := catalog[d]
	out := make([]string, len(keywords))
	copy(out, keywords)
	return out
}

// Catalog returns a copy of the whole keyword table.
func Catalog() map[Dataset][]string {
	out := make(map[Dataset][]string, len(catalog))
	for _, d := range All() {
		out[d] = Keywords(d)
	}
	return out
}
