// Package scoring implements the pure transaction risk evaluator. The engine
// performs no I/O and never mutates the model snapshot it is given; identical
// (model, request) pairs always produce identical results.
package scoring

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/model"
)

// Rule is one entry in the ordered, extensible rule set. Evaluate inspects
// the request against the snapshot and reports whether the rule triggered,
// together with its reason record.
type Rule interface {
	Code() string
	DefaultWeight() int
	Evaluate(m *model.Model, req *domain.ScoreRequest) (domain.Reason, bool)
}

// Engine evaluates score requests against a model snapshot.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine with the built-in rule catalog.
func NewEngine() *Engine {
	return &Engine{rules: BuiltinRules()}
}

// NewEngineWithRules creates an engine with an explicit rule set, evaluated
// in the given order.
func NewEngineWithRules(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Score evaluates a request against the given snapshot. On success the
// result carries the snapshot's version and updatedAt. Any fault during
// evaluation is returned as an error; callers must treat it as "could not
// score", never as zero risk.
func (e *Engine) Score(m *model.Model, req *domain.ScoreRequest) (result *domain.ScoreResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("scoring panic: %v", r)
		}
	}()

	risk := 0
	reasons := make([]domain.Reason, 0, 4)

	for _, rule := range e.rules {
		reason, triggered := rule.Evaluate(m, req)
		if !triggered {
			continue
		}
		risk += m.Weight(rule.Code(), rule.DefaultWeight())
		reasons = append(reasons, reason)
	}

	for _, rule := range m.Rules {
		triggered, evalErr := evalExpression(rule, m, req)
		if evalErr != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Code, evalErr)
		}
		if !triggered {
			continue
		}
		risk += m.Weight(rule.Code, rule.Weight)
		reasons = append(reasons, domain.ExpressionMatch{Code: rule.Code})
	}

	return &domain.ScoreResult{
		Decision:       classify(m.Thresholds, risk),
		Risk:           risk,
		Reasons:        reasons,
		ModelVersion:   m.Version,
		ModelUpdatedAt: m.UpdatedAt,
	}, nil
}

// classify maps a risk score to a decision. Boundaries are strict: a score
// equal to the accept threshold is Review, equal to the review threshold is
// Decline.
func classify(t model.Thresholds, risk int) domain.Decision {
	switch {
	case risk < t.Accept:
		return domain.DecisionAccept
	case risk < t.Review:
		return domain.DecisionReview
	default:
		return domain.DecisionDecline
	}
}

// evalExpression runs a model-defined expression rule. The activation
// mirrors the variables declared by the model compiler's CEL environment.
func evalExpression(rule model.ExpressionRule, m *model.Model, req *domain.ScoreRequest) (bool, error) {
	issuer := ""
	if req.CardBin != "" {
		issuer = m.Bins.Lookup(req.CardBin)
	}

	out, _, err := rule.Program.Eval(map[string]any{
		"amount":           req.Amount,
		"currency":         req.Currency,
		"ip":               req.IP,
		"ip_country":       req.IPCountry,
		"device_id":        req.DeviceID,
		"user_id":          req.UserID,
		"email_hash":       req.EmailHash,
		"email_domain":     req.EmailDomain,
		"card_bin":         req.CardBin,
		"merchant_id":      req.MerchantID,
		"mcc":              req.MCC,
		"merchant_country": req.MerchantCountry,
		"user_country":     req.UserCountry,
		"issuer_country":   issuer,
	})
	if err != nil {
		return false, err
	}

	triggered, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, want bool", out.Value())
	}
	return triggered, nil
}
