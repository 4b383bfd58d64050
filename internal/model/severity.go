package model

// Severity ranks how strongly an indicator points to phishing.
type Severity int

const (
	// SeverityInfo is context that is common on legitimate pages too.
	SeverityInfo Severity = iota

	// SeverityLow is weak evidence on its own.
	SeverityLow

	// SeverityMedium is typical of phishing kits but has legitimate uses.
	SeverityMedium

	// SeverityHigh is rarely seen outside credential harvesting.
	SeverityHigh
)

// String returns the upper-case name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// Indicator types.
const (
	IndicatorExternalFormAction = "external_form_action"
	IndicatorPasswordOverHTTP   = "password_over_http"
	IndicatorMailtoFormAction   = "mailto_form_action"
	IndicatorJSObfuscation      = "js_obfuscation"
	IndicatorRedirect           = "cross_site_redirect"
	IndicatorHiddenIframe       = "hidden_iframe"
	IndicatorForeignResources   = "foreign_resources"
	IndicatorTitleMismatch      = "title_brand_mismatch"
)

// IndicatorInfo describes an indicator type for reports.
type IndicatorInfo struct {
	Severity Severity
	Title    string
	Impact   string
}

var indicatorInfo = map[string]IndicatorInfo{
	IndicatorExternalFormAction: {
		Severity: SeverityHigh,
		Title:    "Form submits to another site",
		Impact:   "Data typed into the form is sent to a domain other than the one shown in the address bar.",
	},
	IndicatorPasswordOverHTTP: {
		Severity: SeverityHigh,
		Title:    "Password field on an unencrypted page",
		Impact:   "Legitimate sign-in pages are served over HTTPS; credentials entered here travel in clear text.",
	},
	IndicatorMailtoFormAction: {
		Severity: SeverityHigh,
		Title:    "Form submits by e-mail",
		Impact:   "Low-effort phishing kits mail harvested credentials to the operator.",
	},
	IndicatorJSObfuscation: {
		Severity: SeverityMedium,
		Title:    "Obfuscated JavaScript",
		Impact:   "Encoded scripts are used to hide credential stealers and to evade page scanners.",
	},
	IndicatorRedirect: {
		Severity: SeverityMedium,
		Title:    "Redirect to another site",
		Impact:   "Phishing pages bounce victims to the real site after the credentials are taken.",
	},
	IndicatorHiddenIframe: {
		Severity: SeverityMedium,
		Title:    "Hidden iframe",
		Impact:   "Invisible frames are used for clickjacking and to load the spoofed page from elsewhere.",
	},
	IndicatorForeignResources: {
		Severity: SeverityLow,
		Title:    "Most resources come from one other site",
		Impact:   "Cloned pages keep hot-linking images and scripts from the brand they impersonate.",
	},
	IndicatorTitleMismatch: {
		Severity: SeverityLow,
		Title:    "Title names a site other than the host",
		Impact:   "The page claims to be a brand whose domain does not match the host.",
	},
}

// GetIndicatorInfo returns the description of an indicator type. Unknown
// types are reported as informational.
func GetIndicatorInfo(indicatorType string) IndicatorInfo {
	if info, ok := indicatorInfo[indicatorType]; ok {
		return info
	}
	return IndicatorInfo{
		Severity: SeverityInfo,
		Title:    indicatorType,
		Impact:   "Unknown indicator type. Review manually.",
	}
}

// Indicator is one piece of page evidence found alongside the model score.
// Indicators are shown to the user; they do not change the score.
type Indicator struct {
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Severity     Severity `json:"severity"`
	SeverityText string   `json:"severity_text"`
	Evidence     string   `json:"evidence,omitempty"`
}

// NewIndicator creates an Indicator of indicatorType with the registered
// title and severity.
func NewIndicator(indicatorType, evidence string) Indicator {
	info := GetIndicatorInfo(indicatorType)
	return Indicator{
		Type:         indicatorType,
		Title:        info.Title,
		Severity:     info.Severity,
		SeverityText: info.Severity.String(),
		Evidence:     evidence,
	}
}
