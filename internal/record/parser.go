package record

import (
	"fmt"
	"strings"

	"github.com/upk240z/zipimport/pkg/zipimport"
)

// Separator is the field delimiter of the reference file.
const Separator = ","

// Split splits a cleaned line into positional fields. Fields are not unquoted.
func Split(line string) []string {
	return strings.Split(line, Separator)
}

// Parse converts one cleaned source line into a Row.
//
// A line with fewer than zipimport.MinFieldCount fields fails with
// zipimport.ErrMalformedRecord. An end of validity of "000000" is rewritten
// to "999999". The city and town kana are widened; every other field is
// copied verbatim.
func Parse(line string) (zipimport.Row, error) {
	fields := Split(line)
	if len(fields) < zipimport.MinFieldCount {
		return zipimport.Row{}, fmt.Errorf("expected at least %d fields, got %d: %w",
			zipimport.MinFieldCount, len(fields), zipimport.ErrMalformedRecord)
	}

	end := fields[zipimport.FieldEndYM]
	if end == zipimport.OpenEndedYearMonth {
		end = zipimport.MaxYearMonth
	}

	return zipimport.Row{
		Code:     fields[zipimport.FieldCode],
		Zipcode:  fields[zipimport.FieldZipcode],
		City:     fields[zipimport.FieldCity],
		Town:     fields[zipimport.FieldTown],
		Chome:    fields[zipimport.FieldChome],
		CityKana: Widen(fields[zipimport.FieldCityKana]),
		TownKana: Widen(fields[zipimport.FieldTownKana]),
		StartYM:  fields[zipimport.FieldStartYM],
		EndYM:    end,
	}, nil
}
