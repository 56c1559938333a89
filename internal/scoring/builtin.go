package scoring

import (
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/model"
)

// BuiltinRules returns the default rule catalog in evaluation order.
func BuiltinRules() []Rule {
	return []Rule{
		binCountryMismatch{},
		ipDenied{},
		deviceDenied{},
		merchantDenied{},
		disposableEmail{},
		highRiskCountry{},
		highRiskMCC{},
	}
}

// binCountryMismatch triggers when the issuer country resolved from the card
// BIN is known and differs from the user country. Applicable only when both
// sides are present.
type binCountryMismatch struct{}

func (binCountryMismatch) Code() string       { return domain.RuleBinCountryMismatch }
func (binCountryMismatch) DefaultWeight() int { return 12 }

func (binCountryMismatch) Evaluate(m *model.Model, req *domain.ScoreRequest) (domain.Reason, bool) {
	if req.UserCountry == "" || req.CardBin == "" {
		return nil, false
	}
	issuer := m.Bins.Lookup(req.CardBin)
	if issuer == model.UnknownCountry || issuer == req.UserCountry {
		return nil, false
	}
	return domain.BinCountryMismatch{IssuerCountry: issuer, UserCountry: req.UserCountry}, true
}

type ipDenied struct{}

func (ipDenied) Code() string       { return domain.RuleIPDenied }
func (ipDenied) DefaultWeight() int { return 25 }

func (ipDenied) Evaluate(m *model.Model, req *domain.ScoreRequest) (domain.Reason, bool) {
	if req.IP == "" {
		return nil, false
	}
	if _, denied := m.Deny.IPs[req.IP]; !denied {
		return nil, false
	}
	return domain.DeniedEntry{Code: domain.RuleIPDenied, Value: req.IP}, true
}

type deviceDenied struct{}

func (deviceDenied) Code() string       { return domain.RuleDeviceDenied }
func (deviceDenied) DefaultWeight() int { return 25 }

func (deviceDenied) Evaluate(m *model.Model, req *domain.ScoreRequest) (domain.Reason, bool) {
	if req.DeviceID == "" {
		return nil, false
	}
	if _, denied := m.Deny.Devices[req.DeviceID]; !denied {
		return nil, false
	}
	return domain.DeniedEntry{Code: domain.RuleDeviceDenied, Value: req.DeviceID}, true
}

// merchantDenied triggers for deny-listed merchants unless the merchant is
// also on the allow list.
type merchantDenied struct{}

func (merchantDenied) Code() string       { return domain.RuleMerchantDenied }
func (merchantDenied) DefaultWeight() int { return 20 }

func (merchantDenied) Evaluate(m *model.Model, req *domain.ScoreRequest) (domain.Reason, bool) {
	if req.MerchantID == "" {
		return nil, false
	}
	if _, allowed := m.Allow.Merchants[req.MerchantID]; allowed {
		return nil, false
	}
	if _, denied := m.Deny.Merchants[req.MerchantID]; !denied {
		return nil, false
	}
	return domain.DeniedEntry{Code: domain.RuleMerchantDenied, Value: req.MerchantID}, true
}

type disposableEmail struct{}

func (disposableEmail) Code() string       { return domain.RuleDisposableEmail }
func (disposableEmail) DefaultWeight() int { return 8 }

func (disposableEmail) Evaluate(m *model.Model, req *domain.ScoreRequest) (domain.Reason, bool) {
	if req.EmailDomain == "" {
		return nil, false
	}
	if _, disposable := m.DisposableDomains[req.EmailDomain]; !disposable {
		return nil, false
	}
	return domain.DisposableEmail{Domain: req.EmailDomain}, true
}

// highRiskCountry checks the user country against the model's country risk
// table, falling back to the IP-derived country when the user country is
// absent.
type highRiskCountry struct{}

func (highRiskCountry) Code() string       { return domain.RuleHighRiskCountry }
func (highRiskCountry) DefaultWeight() int { return 10 }

func (highRiskCountry) Evaluate(m *model.Model, req *domain.ScoreRequest) (domain.Reason, bool) {
	country := req.UserCountry
	if country == "" {
		country = req.IPCountry
	}
	if country == "" {
		return nil, false
	}
	label, ok := m.CountryRisk[country]
	if !ok || label != "high" {
		return nil, false
	}
	return domain.HighRiskEntry{Code: domain.RuleHighRiskCountry, Value: country, Label: label}, true
}

type highRiskMCC struct{}

func (highRiskMCC) Code() string       { return domain.RuleHighRiskMCC }
func (highRiskMCC) DefaultWeight() int { return 6 }

func (highRiskMCC) Evaluate(m *model.Model, req *domain.ScoreRequest) (domain.Reason, bool) {
	if req.MCC == "" {
		return nil, false
	}
	label, ok := m.MCCRisk[req.MCC]
	if !ok || label != "high" {
		return nil, false
	}
	return domain.HighRiskEntry{Code: domain.RuleHighRiskMCC, Value: req.MCC, Label: label}, true
}
