package settings

import (
	"strings"
)

// Keys used by the key-value settings store.
const (
	KeyBackgroundType   = "cert_background_type"
	KeyBackgroundURL    = "cert_background_custom_url"
	KeyLogoEnabled      = "cert_logo_enabled"
	KeyLogoURL          = "cert_logo_url"
	KeySignatureType    = "cert_signature_type"
	KeySignatureText    = "cert_sig_text"
	KeySignatureImage   = "cert_sig_image_url"
	KeyLabelCertify     = "cert_label_certify"
	KeyLabelCompleted   = "cert_label_completed"
	KeyLabelDate        = "cert_label_date"
	KeyLabelInstructor  = "cert_label_instructor"
	KeyDateFormat       = "date_format"
	KeyLocale           = "cert_locale"
	KeyPageSize         = "cert_page_size"
	logoEnabledCheckbox = "cert_logo"
)

type BackgroundType string

const (
	BackgroundDefault BackgroundType = "use_default"
	BackgroundCustom  BackgroundType = "use_custom"
)

type SignatureType string

const (
	SignatureText  SignatureType = "text"
	SignatureImage SignatureType = "image"
)

// Labels holds the fixed wording printed on the certificate.
type Labels struct {
	Certify    string `json:"certify"`
	Completed  string `json:"completed"`
	Date       string `json:"date"`
	Instructor string `json:"instructor"`
}

// Settings is the certificate configuration used for one render.
type Settings struct {
	BackgroundType    BackgroundType `json:"background_type"`
	BackgroundURL     string         `json:"background_url,omitempty"`
	LogoEnabled       bool           `json:"logo_enabled"`
	LogoURL           string         `json:"logo_url,omitempty"`
	SignatureType     SignatureType  `json:"signature_type"`
	SignatureText     string         `json:"signature_text,omitempty"`
	SignatureImageURL string         `json:"signature_image_url,omitempty"`
	Labels            Labels         `json:"labels"`
	DateFormat        string         `json:"date_format"` // Go time layout
	Locale            string         `json:"locale"`      // BCP 47 tag used for upper-casing headings
	PageSize          string         `json:"page_size"`
}

// Defaults returns the settings used when the store has no value for a key.
func Defaults() Settings {
	return Settings{
		BackgroundType: BackgroundDefault,
		SignatureType:  SignatureText,
		Labels: Labels{
			Certify:    "This is to certify that",
			Completed:  "has successfully completed",
			Date:       "Date",
			Instructor: "Instructor",
		},
		DateFormat: "January 2, 2006",
		Locale:     "en",
		PageSize:   "A4",
	}
}

// FromValues builds Settings from raw store values, applying Defaults for
// missing or empty keys.
func FromValues(values map[string]string) Settings {
	s := Defaults()
	get := func(key string) string {
		return strings.TrimSpace(values[key])
	}

	if v := get(KeyBackgroundType); v != "" {
		s.BackgroundType = BackgroundType(v)
	}
	s.BackgroundURL = get(KeyBackgroundURL)
	s.LogoEnabled = isEnabled(get(KeyLogoEnabled))
	s.LogoURL = get(KeyLogoURL)
	if v := get(KeySignatureType); v != "" {
		s.SignatureType = SignatureType(v)
	}
	s.SignatureText = get(KeySignatureText)
	s.SignatureImageURL = get(KeySignatureImage)

	if v := get(KeyLabelCertify); v != "" {
		s.Labels.Certify = v
	}
	if v := get(KeyLabelCompleted); v != "" {
		s.Labels.Completed = v
	}
	if v := get(KeyLabelDate); v != "" {
		s.Labels.Date = v
	}
	if v := get(KeyLabelInstructor); v != "" {
		s.Labels.Instructor = v
	}
	if v := get(KeyDateFormat); v != "" {
		s.DateFormat = v
	}
	if v := get(KeyLocale); v != "" {
		s.Locale = v
	}
	if v := get(KeyPageSize); v != "" {
		s.PageSize = v
	}
	return s
}

// UsesCustomBackground reports whether the configured custom background applies.
func (s Settings) UsesCustomBackground() bool {
	return s.BackgroundType == BackgroundCustom && s.BackgroundURL != ""
}

// ShowsLogo reports whether a logo should be placed.
func (s Settings) ShowsLogo() bool {
	return s.LogoEnabled && s.LogoURL != ""
}

func isEnabled(v string) bool {
	switch strings.ToLower(v) {
	case logoEnabledCheckbox, "1", "true", "yes", "on":
		return true
	}
	return false
}
