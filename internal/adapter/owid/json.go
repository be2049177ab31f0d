package owid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/emissions-globe-service/internal/domain"
)

// jsonEntry covers both JSON shapes the mirrors serve: the nested
// {code: {country, co2: {year: value}}} form and OWID's native
// {name: {iso_code, data: [{year, co2}]}} form.
type jsonEntry struct {
	Country string            `json:"country"`
	CO2     map[string]any    `json:"co2"`
	ISOCode string            `json:"iso_code"`
	Data    []nativeDataPoint `json:"data"`
}

type nativeDataPoint struct {
	Year json.Number `json:"year"`
	CO2  any         `json:"co2"`
}

// decodeJSON reads either JSON shape into a raw dataset. Entries that fail to
// decode individually are left out.
func decodeJSON(r io.Reader) (domain.RawDataset, error) {
	var entries map[string]json.RawMessage
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode owid json: %w", err)
	}

	raw := make(domain.RawDataset, len(entries))
	for key, msg := range entries {
		var e jsonEntry
		d := json.NewDecoder(bytes.NewReader(msg))
		d.UseNumber()
		if err := d.Decode(&e); err != nil {
			continue
		}

		if e.Data == nil {
			raw[key] = domain.RawRegionRecord{DisplayName: e.Country, Values: e.CO2}
			continue
		}

		code := regionCode(e.ISOCode)
		if code == "" {
			continue
		}
		values := make(map[string]any, len(e.Data))
		for _, p := range e.Data {
			if p.CO2 == nil {
				continue
			}
			values[yearKey(p.Year)] = p.CO2
		}
		raw[code] = domain.RawRegionRecord{DisplayName: key, Values: values}
	}
	return raw, nil
}

// yearKey renders a native year as the decimal key used by RawRegionRecord.
// Non-integer years are kept verbatim so normalization counts them.
func yearKey(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	return n.String()
}
