package weather

import (
	"fmt"
	"strings"
)

// NotProvided is the label shown when the service reports "n/a".
const NotProvided = "Not Provided"

const (
	codeNotAvailable = "n/a"
	iconSubpath      = "wi-icons-svg"
)

// conditionIcons maps present-weather codes to icon names.
var conditionIcons = map[string]string{
	"DZ":         "wi-sprinkle",
	"RA":         "wi-rain",
	"SN":         "wi-snow",
	"SG":         "wi-snow",
	"IC":         "wi-snowflake-cold",
	"PL":         "wi-sleet",
	"GR":         "wi-hail",
	"GS":         "wi-sleet",
	"UP":         "wi-na",
	"BR":         "wi-fog",
	"FG":         "wi-fog",
	"FU":         "wi-smoke",
	"VA":         "wi-volcano",
	"SA":         "wi-sandstorm",
	"HZ":         "wi-day-haze",
	"PY":         "wi-spray",
	"DU":         "wi-dust",
	"SQ":         "wi-strong-wind",
	"SS":         "wi-sandstorm",
	"DS":         "wi-dust",
	"PO":         "wi-tornado",
	"FC":         "wi-tornado",
	"+FC":        "wi-hurricane",
	"-":          "wi-cloud",
	"+":          "wi-cloudy-gusts",
	"VC":         "wi-cloud",
	"MI":         "wi-fog",
	"BC":         "wi-cloud",
	"SH":         "wi-showers",
	"PR":         "wi-cloudy",
	"TS":         "wi-thunderstorm",
	"BL":         "wi-strong-wind",
	"DR":         "wi-cloudy-windy",
	"light snow": "wi-snowflake-cold",
}

// cloudIcons maps cloud cover codes to icon names.
var cloudIcons = map[string]string{
	"SKC":   "wi-day-sunny",
	"CLR":   "wi-night-clear",
	"FEW":   "wi-cloud",
	"SCT":   "wi-cloudy",
	"BKN":   "wi-cloudy",
	"OVC":   "wi-cloudy-gusts",
	"CAVOK": "wi-day-sunny-overcast",
	"NCD":   "wi-night-clear",
	"NSC":   "wi-cloudy",
	"VV":    "wi-fog",
}

// IconMode selects the shape of an icon resolution.
type IconMode string

const (
	IconModeSingle IconMode = "single"
	IconModeDual   IconMode = "dual"
)

// ParseIconMode accepts "single" or "dual" (case-insensitive).
func ParseIconMode(s string) (IconMode, error) {
	switch IconMode(strings.ToLower(strings.TrimSpace(s))) {
	case IconModeSingle:
		return IconModeSingle, nil
	case IconModeDual:
		return IconModeDual, nil
	default:
		return "", fmt.Errorf("unknown icon mode %q", s)
	}
}

// IconSet is the result of resolving a condition/cloud pair.
type IconSet struct {
	Condition        string  `json:"condition"`
	Cloud            string  `json:"cloud"`
	ConditionIconURL *string `json:"conditionIconUrl"`
	CloudIconURL     *string `json:"cloudIconUrl"`
}

// IconResolver builds icon URLs from the static tables.
type IconResolver struct {
	assetBase string
	mode      IconMode
}

// NewIconResolver creates a resolver for the given asset base URL. An unknown
// mode falls back to single-icon resolution.
func NewIconResolver(assetBase string, mode IconMode) *IconResolver {
	if mode != IconModeDual {
		mode = IconModeSingle
	}
	return &IconResolver{
		assetBase: strings.TrimRight(assetBase, "/"),
		mode:      mode,
	}
}

// Mode reports the configured strategy.
func (r *IconResolver) Mode() IconMode {
	return r.mode
}

// Resolve maps the codes to icon URLs. It never fails: unknown codes and "n/a"
// give nil URLs. In single mode the cloud URL is always nil.
func (r *IconResolver) Resolve(conditionCode, cloudCode string) IconSet {
	set := IconSet{
		Condition: ConditionLabel(conditionCode),
		Cloud:     ConditionLabel(cloudCode),
	}
	set.ConditionIconURL = r.lookup(conditionIcons, set.Condition)
	if r.mode == IconModeDual {
		set.CloudIconURL = r.lookup(cloudIcons, set.Cloud)
	}
	return set
}

func (r *IconResolver) lookup(table map[string]string, code string) *string {
	if code == NotProvided {
		return nil
	}
	name, ok := table[code]
	if !ok {
		return nil
	}
	u := fmt.Sprintf("%s/%s/%s.svg", r.assetBase, iconSubpath, name)
	return &u
}

// ConditionLabel normalizes "n/a" to the "Not Provided" label.
func ConditionLabel(code string) string {
	if code == codeNotAvailable {
		return NotProvided
	}
	return code
}
