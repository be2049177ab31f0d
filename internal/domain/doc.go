// Package domain models the Our World in Data (OWID) CO₂ emissions dataset
// and the two pure computations every view is built from.
//
// # Data Source
//
// The OWID dataset (https://github.com/owid/co2-data) publishes one row per
// country and year with annual territorial CO₂ emissions in million tonnes in
// the "co2" column. The owid adapter regroups those rows into a RawDataset:
//
//	{"OWID_USA": {"country": "United States", "co2": {"2018": 5377.8, "2019": 5262.1}}}
//
// # OWID Conventions
//
// Region codes:
//
//	Countries carry their ISO 3166-1 alpha-3 code, keyed with an "OWID_"
//	prefix (OWID_USA, OWID_DEU). OWID's own rollups use invented codes in the
//	same namespace (OWID_WRL world, OWID_EUR Europe, OWID_KOS Kosovo) and are
//	excluded from the table. MapCode strips the prefix to get the code a
//	choropleth renderer understands.
//
// Series gaps:
//
//	Years are sparse. Early years are missing for most countries and the
//	metric may be null or absent for any year. An absent year is not zero.
//
// # Normalization
//
// Normalize turns a RawDataset into one RegionTimeSeries per country with at
// least one valid point. Each series is sorted by year and carries its latest
// point, extrema and a trend label derived from the endpoints of the trailing
// six-year window (latest-5 through latest).
//
// # Projection
//
// Project builds one RenderFrame for a year: a value per region (falling back
// to the region's latest value when the year is missing) and a color domain
// clipped to the 5th..95th percentile of the frame so a handful of large
// emitters do not wash out everyone else.
package domain
