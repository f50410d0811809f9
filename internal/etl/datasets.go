package etl

import (
	"strings"

	"AirlineETL/pkg/detector"
)

var registry = map[detector.Dataset]Cleaner{
	detector.Airline:        airlines,
	detector.Passenger:      passengers,
	detector.Flight:         flights,
	detector.Airport:        airports,
	detector.TravelAgency:   travelAgencySales,
	detector.CorporateSales: corporateSales,
}

var airlines = &schema{
	dataset: detector.Airline,
	key:     "airline_key",
	fields: []field{
		{name: "airline_key", aliases: []string{"airlinekey", "airline_code", "iata"}, convert: upper},
		{name: "airline_name", aliases: []string{"airlinename", "airline", "name"}, convert: title},
		{name: "alliance"},
	},
}

var passengers = &schema{
	dataset: detector.Passenger,
	key:     "passenger_id",
	fields: []field{
		{name: "passenger_id", aliases: []string{"passengerkey", "passenger_key", "id"}},
		{name: "name", aliases: []string{"full_name", "passenger_name"}},
		{name: "age", convert: integer},
	},
	derive: func(rec Record, out map[string]any) {
		if out["name"] != nil {
			return
		}
		full := strings.TrimSpace(rec.Get("first_name") + " " + rec.Get("last_name"))
		if full != "" {
			out["name"] = full
		}
	},
}

var flights = &schema{
	dataset: detector.Flight,
	key:     "flightkey",
	fields: []field{
		{name: "flightkey", aliases: []string{"flight_key", "flight_number", "flight"}},
		{name: "originairportkey", aliases: []string{"origin_airport_key", "originairport", "origin_airport", "origin"}, convert: upper},
		{name: "destinationairportkey", aliases: []string{"destination_airport_key", "destinationairport", "destination_airport", "destination"}, convert: upper},
		{name: "aircrafttype", aliases: []string{"aircraft_type", "aircraft"}},
	},
}

var airports = &schema{
	dataset: detector.Airport,
	key:     "airportkey",
	fields: []field{
		{name: "airportkey", aliases: []string{"airport_key", "iata", "iata_code", "airport_code", "code"}, convert: upper},
		{name: "airportname", aliases: []string{"airport_name", "name"}},
		{name: "city"},
		{name: "country", convert: country},
	},
	derive: func(rec Record, out map[string]any) {
		// rows without a code are still kept when they carry a name
		if out["airportkey"] == nil {
			if name, ok := out["airportname"].(string); ok {
				out["airportkey"] = strings.ToUpper(name)
			}
		}
	},
}

var travelAgencySales = &schema{
	dataset: detector.TravelAgency,
	key:     "transactionid",
	fields: []field{
		{name: "transactionid", aliases: []string{"transaction_id", "booking_id", "bookingid"}},
		{name: "agencykey", aliases: []string{"agency_key", "agency_id"}},
		{name: "agencyname", aliases: []string{"agency_name"}},
		{name: "passengername", aliases: []string{"passenger_name"}},
		{name: "flightnumber", aliases: []string{"flight_number"}},
		{name: "saleamount", aliases: []string{"sale_amount", "amount"}, convert: number},
		{name: "currency", convert: upper},
		{name: "saledate", aliases: []string{"sale_date", "date"}, convert: date},
	},
}

var corporateSales = &schema{
	dataset: detector.CorporateSales,
	key:     "invoiceid",
	fields: []field{
		{name: "invoiceid", aliases: []string{"invoice_id", "invoice", "transactionid", "transaction_id"}},
		{name: "corporate_id", aliases: []string{"corp_id"}},
		{name: "corporate_name", aliases: []string{"company", "corporate", "client_name"}},
		{name: "item", aliases: []string{"description"}},
		{name: "qty", aliases: []string{"quantity"}, convert: number},
		{name: "unitprice", aliases: []string{"unit_price", "price"}, convert: number},
		{name: "total", aliases: []string{"amount", "contract_value"}, convert: number},
		{name: "currency", convert: upper},
		{name: "saledate", aliases: []string{"sale_date", "date"}, convert: date},
	},
}
