package model

import "testing"

func TestSeverityString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityInfo, "INFO"},
		{SeverityLow, "LOW"},
		{SeverityMedium, "MEDIUM"},
		{SeverityHigh, "HIGH"},
		{Severity(999), "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.severity.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.severity.String(), tc.expected)
			}
		})
	}
}

func TestGetIndicatorInfo(t *testing.T) {
	t.Parallel()

	t.Run("every indicator type is registered", func(t *testing.T) {
		t.Parallel()
		for _, typ := range []string{
			IndicatorExternalFormAction,
			IndicatorPasswordOverHTTP,
			IndicatorMailtoFormAction,
			IndicatorJSObfuscation,
			IndicatorRedirect,
			IndicatorHiddenIframe,
			IndicatorForeignResources,
			IndicatorTitleMismatch,
		} {
			info := GetIndicatorInfo(typ)
			if info.Title == "" || info.Impact == "" || info.Title == typ {
				t.Errorf("%s: incomplete info %+v", typ, info)
			}
		}
	})

	t.Run("unknown type is informational", func(t *testing.T) {
		t.Parallel()
		info := GetIndicatorInfo("no_such_indicator")
		if info.Severity != SeverityInfo {
			t.Errorf("expected SeverityInfo, got %v", info.Severity)
		}
	})
}

func TestNewIndicator(t *testing.T) {
	t.Parallel()

	ind := NewIndicator(IndicatorExternalFormAction, "https://collect.example/post")
	if ind.Severity != SeverityHigh || ind.SeverityText != "HIGH" {
		t.Errorf("unexpected severity: %+v", ind)
	}
	if ind.Title != GetIndicatorInfo(IndicatorExternalFormAction).Title {
		t.Errorf("unexpected title %q", ind.Title)
	}
	if ind.Evidence != "https://collect.example/post" {
		t.Errorf("unexpected evidence %q", ind.Evidence)
	}
}
