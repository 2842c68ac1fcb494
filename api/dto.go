/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Request bodies for the write endpoints and the error envelope. Responses
  use the census types directly: their JSON tags already match the stored
  attribute names.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Response wrappers

VALIDATION:
  Validation is done by the census core, not in DTOs. DTOs are pure data
  carriers.
*/
package api

import "github.com/warp/census-tracker/census"

// CreateDistrictRequest is the request to register a district.
type CreateDistrictRequest struct {
	Name         string  `json:"name"`
	Region       string  `json:"region"`
	AreaSqKm     float64 `json:"area_sqkm"`
	DistrictType string  `json:"district_type"`
}

func (r CreateDistrictRequest) toInput() census.DistrictInput {
	return census.DistrictInput{
		Name:         r.Name,
		Region:       r.Region,
		AreaSqKm:     r.AreaSqKm,
		DistrictType: r.DistrictType,
	}
}

// RecordCensusRequest is the request to record one census year.
// The district comes from the URL.
type RecordCensusRequest struct {
	Year             int     `json:"year"`
	Population       int64   `json:"population"`
	Households       int64   `json:"households"`
	AvgAge           float64 `json:"avg_age"`
	MedianIncome     float64 `json:"median_income"`
	UnemploymentRate float64 `json:"unemployment_rate"`
	Notes            string  `json:"notes"`
}

func (r RecordCensusRequest) toInput(district string) census.CensusInput {
	return census.CensusInput{
		DistrictName:     district,
		Year:             r.Year,
		Population:       r.Population,
		Households:       r.Households,
		AvgAge:           r.AvgAge,
		MedianIncome:     r.MedianIncome,
		UnemploymentRate: r.UnemploymentRate,
		Notes:            r.Notes,
	}
}

// ListDistrictsResponse wraps a district listing.
type ListDistrictsResponse struct {
	Region    string            `json:"region,omitempty"`
	Count     int               `json:"count"`
	Districts []census.District `json:"districts"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
