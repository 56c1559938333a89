package domain

// Rule codes for the built-in catalog. Model weights are keyed by these.
const (
	RuleBinCountryMismatch   = "BIN_COUNTRY_MISMATCH"
	RuleIPDenied             = "IP_DENYLIST"
	RuleDeviceDenied         = "DEVICE_DENYLIST"
	RuleMerchantDenied       = "MERCHANT_DENYLIST"
	RuleDisposableEmail      = "DISPOSABLE_EMAIL_DOMAIN"
	RuleHighRiskCountry      = "HIGH_RISK_COUNTRY"
	RuleHighRiskMCC          = "HIGH_RISK_MCC"
)

// Reason records why a rule contributed to the risk score. Each variant
// carries the strongly-typed fields of its rule; the generic key/value
// projection happens only at the serialization boundary via Attributes.
type Reason interface {
	// RuleCode returns the code of the rule that produced this reason.
	RuleCode() string

	// Attributes projects the reason to a flat key/value record.
	// The "code" key is always present.
	Attributes() map[string]any
}

// BinCountryMismatch is raised when the issuer country resolved from the
// card BIN differs from the user's country.
type BinCountryMismatch struct {
	IssuerCountry string
	UserCountry   string
}

func (r BinCountryMismatch) RuleCode() string { return RuleBinCountryMismatch }

func (r BinCountryMismatch) Attributes() map[string]any {
	return map[string]any{
		"code":          r.RuleCode(),
		"issuerCountry": r.IssuerCountry,
		"userCountry":   r.UserCountry,
	}
}

// DeniedEntry is raised when a request attribute appears on one of the
// model's deny lists. Code distinguishes the list (IP, device, merchant).
type DeniedEntry struct {
	Code  string
	Value string
}

func (r DeniedEntry) RuleCode() string { return r.Code }

func (r DeniedEntry) Attributes() map[string]any {
	return map[string]any{
		"code":  r.Code,
		"value": r.Value,
	}
}

// DisposableEmail is raised when the request's email domain is on the
// model's disposable-domain set.
type DisposableEmail struct {
	Domain string
}

func (r DisposableEmail) RuleCode() string { return RuleDisposableEmail }

func (r DisposableEmail) Attributes() map[string]any {
	return map[string]any{
		"code":   r.RuleCode(),
		"domain": r.Domain,
	}
}

// HighRiskEntry is raised when a model risk table labels a request
// attribute as high risk. Code distinguishes the table (country, MCC).
type HighRiskEntry struct {
	Code  string
	Value string
	Label string
}

func (r HighRiskEntry) RuleCode() string { return r.Code }

func (r HighRiskEntry) Attributes() map[string]any {
	return map[string]any{
		"code":  r.Code,
		"value": r.Value,
		"risk":  r.Label,
	}
}

// ExpressionMatch is raised when a model-defined expression rule evaluates
// to true.
type ExpressionMatch struct {
	Code string
}

func (r ExpressionMatch) RuleCode() string { return r.Code }

func (r ExpressionMatch) Attributes() map[string]any {
	return map[string]any{
		"code": r.Code,
	}
}
