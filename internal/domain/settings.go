package domain

// SettingsID is the fixed row id of the singleton settings document.
const SettingsID = "global-config"

// AppSettings is the process-wide storefront configuration. It is always
// replaced as a whole.
type AppSettings struct {
	WhatsappNumber       string  `json:"whatsappNumber"`
	WhatsappTemplate     string  `json:"whatsappTemplate"`
	BrandName            string  `json:"brandName" validate:"required"`
	EstablishedYear      string  `json:"establishedYear"`
	DefaultImageQuality  float64 `json:"defaultImageQuality" validate:"gte=0,lte=1"`
	PreferredImageFormat string  `json:"preferredImageFormat"`
	CurrencySymbol       string  `json:"currencySymbol" validate:"required"`
	DefaultTaxPercent    float64 `json:"defaultTaxPercent" validate:"gte=0"`
}
