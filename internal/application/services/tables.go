package services

import "strings"

// ZipTable maps known ZIP codes to coordinates. Curated for the New York
// metro area, where the CMS sample data is concentrated.
type ZipTable map[string]struct {
	Lat float64
	Lon float64
}

// RegionEntry is a coarse centroid for a ZIP prefix, with a jitter bound in
// degrees so unknown ZIPs sharing a prefix spread out instead of collapsing
// to one point.
type RegionEntry struct {
	Lat    float64
	Lon    float64
	Jitter float64
}

// RegionTable maps 2-digit and 1-digit ZIP prefixes to regional centroids.
// Longer prefixes are checked first.
type RegionTable map[string]RegionEntry

// SynonymTable maps a query token to procedure-description terms commonly
// used alongside it in MS-DRG definitions.
type SynonymTable map[string][]string

// CityTable maps lowercase city names mentioned in questions to the city
// value stored on provider records.
type CityTable map[string]string

// CategoryTable maps procedure category words to broad description patterns
// used by the assistant's last-resort fallback search.
type CategoryTable map[string][]string

// DefaultZipTable covers the Manhattan and outer-borough ZIPs that appear
// most often in the sample data.
func DefaultZipTable() ZipTable {
	return ZipTable{
		"10001": {40.7505, -73.9934},
		"10002": {40.7157, -73.9877},
		"10003": {40.7317, -73.9890},
		"10011": {40.7403, -74.0000},
		"10016": {40.7461, -73.9784},
		"10019": {40.7656, -73.9866},
		"10021": {40.7695, -73.9596},
		"10025": {40.7987, -73.9667},
		"10029": {40.7918, -73.9441},
		"10032": {40.8387, -73.9428},
		"10451": {40.8201, -73.9223},
		"10467": {40.8732, -73.8713},
		"11201": {40.6937, -73.9898},
		"11203": {40.6496, -73.9341},
		"11355": {40.7515, -73.8215},
		"11432": {40.7154, -73.7925},
	}
}

// DefaultRegionTable distinguishes the NYC metro prefixes from upstate and
// Long Island regions.
func DefaultRegionTable() RegionTable {
	return RegionTable{
		"10": {40.7128, -74.0060, 0.15},
		"11": {40.7282, -73.7949, 0.20},
		"12": {42.6526, -73.7562, 0.40},
		"13": {43.0481, -76.1474, 0.40},
		"14": {42.8864, -78.8784, 0.40},
		"1":  {41.2033, -74.2179, 0.60},
	}
}

// DefaultSynonymTable expands common lay terms into MS-DRG vocabulary.
func DefaultSynonymTable() SynonymTable {
	return SynonymTable{
		"knee":        {"joint", "orthopedic", "replacement", "arthroplasty"},
		"hip":         {"joint", "orthopedic", "replacement", "arthroplasty"},
		"joint":       {"replacement", "orthopedic"},
		"heart":       {"cardiac", "cardiovascular", "coronary"},
		"cardiac":     {"heart", "cardiovascular", "coronary"},
		"kidney":      {"renal", "urinary", "nephrology"},
		"brain":       {"cranial", "neurological", "nervous"},
		"spine":       {"spinal", "back", "vertebral"},
		"lung":        {"pulmonary", "respiratory", "thoracic"},
		"stomach":     {"gastric", "digestive", "gastrointestinal"},
		"birth":       {"delivery", "cesarean", "vaginal", "newborn"},
		"cancer":      {"malignancy", "neoplasm", "chemotherapy"},
		"infection":   {"septicemia", "infectious", "cellulitis"},
		"stroke":      {"intracranial", "hemorrhage", "cerebrovascular"},
		"replacement": {"joint", "arthroplasty"},
		"surgery":     {"procedure", "surgical"},
	}
}

// DefaultCityTable covers New York state cities present in the sample data.
func DefaultCityTable() CityTable {
	return CityTable{
		"new york":      "NEW YORK",
		"nyc":           "NEW YORK",
		"manhattan":     "NEW YORK",
		"brooklyn":      "BROOKLYN",
		"bronx":         "BRONX",
		"queens":        "JAMAICA",
		"staten island": "STATEN ISLAND",
		"albany":        "ALBANY",
		"buffalo":       "BUFFALO",
		"rochester":     "ROCHESTER",
		"syracuse":      "SYRACUSE",
		"yonkers":       "YONKERS",
	}
}

// DefaultCategoryTable groups procedure vocabulary into broad categories for
// the assistant's widest fallback search.
func DefaultCategoryTable() CategoryTable {
	return CategoryTable{
		"orthopedic":  {"%joint%", "%hip%", "%knee%", "%fracture%", "%spinal%"},
		"cardiac":     {"%cardiac%", "%heart%", "%coronary%", "%cardiovascular%"},
		"respiratory": {"%pulmonary%", "%respiratory%", "%pneumonia%"},
		"renal":       {"%kidney%", "%renal%", "%urinary%"},
		"digestive":   {"%gastrointestinal%", "%digestive%", "%bowel%"},
		"maternity":   {"%delivery%", "%cesarean%", "%newborn%"},
	}
}

// CategoryFor returns the fallback patterns for the first category whose
// vocabulary appears in the text, or nil when none matches.
func (t CategoryTable) CategoryFor(text string) []string {
	lower := strings.ToLower(text)
	// Fixed probe order keeps the fallback deterministic.
	for _, category := range []string{"orthopedic", "cardiac", "respiratory", "renal", "digestive", "maternity"} {
		patterns, ok := t[category]
		if !ok {
			continue
		}
		if strings.Contains(lower, category) {
			return patterns
		}
		for _, pattern := range patterns {
			term := strings.Trim(pattern, "%")
			if strings.Contains(lower, term) {
				return patterns
			}
		}
	}
	return nil
}
