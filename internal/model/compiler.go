package model

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/cel-go/cel"
)

// Compiler transforms raw model definition documents into Model snapshots.
// Compilation is all-or-nothing: any field-level parse, validation, or
// expression failure aborts the whole compile and no model is produced.
// Compile performs file I/O and must stay off the scoring path; the update
// coordinator runs it on its worker pool.
type Compiler struct {
	env *cel.Env
}

// NewCompiler creates a compiler with the CEL environment that model-defined
// expression rules are checked against.
func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("currency", cel.StringType),
		cel.Variable("ip", cel.StringType),
		cel.Variable("ip_country", cel.StringType),
		cel.Variable("device_id", cel.StringType),
		cel.Variable("user_id", cel.StringType),
		cel.Variable("email_hash", cel.StringType),
		cel.Variable("email_domain", cel.StringType),
		cel.Variable("card_bin", cel.StringType),
		cel.Variable("merchant_id", cel.StringType),
		cel.Variable("mcc", cel.StringType),
		cel.Variable("merchant_country", cel.StringType),
		cel.Variable("user_country", cel.StringType),
		cel.Variable("issuer_country", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Compiler{env: env}, nil
}

// document mirrors the model definition file layout.
type document struct {
	Version           string            `json:"version"`
	CreatedAt         string            `json:"createdAt"`
	BinTable          []binEntry        `json:"binTable"`
	MCCRisk           map[string]string `json:"mccRisk"`
	CountryRisk       map[string]string `json:"countryRisk"`
	Lists             *listsDoc         `json:"lists"`
	DisposableDomains []string          `json:"disposableDomains"`
	Weights           map[string]int    `json:"weights"`
	Thresholds        *Thresholds       `json:"thresholds"`
	Velocity          *velocityDoc      `json:"velocity"`
	Rules             []ruleDoc         `json:"rules"`
}

type binEntry struct {
	Prefix  string `json:"prefix"`
	Country string `json:"country"`
}

type listsDoc struct {
	Allow struct {
		MerchantIDs []string `json:"merchantIds"`
		UserIDs     []string `json:"userIds"`
		CardBins    []string `json:"cardBins"`
	} `json:"allow"`
	Deny struct {
		IPs         []string `json:"ips"`
		Devices     []string `json:"devices"`
		MerchantIDs []string `json:"merchantIds"`
	} `json:"deny"`
}

type velocityDoc struct {
	Windows []string                  `json:"windows"`
	Limits  map[string]map[string]int `json:"limits"`
	Caps    map[string]int            `json:"caps"`
}

type ruleDoc struct {
	Code       string `json:"code"`
	Expression string `json:"expression"`
	Weight     int    `json:"weight"`
}

// Compile reads and validates a model definition file and returns the
// immutable snapshot, or an error with no model produced.
func (c *Compiler) Compile(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model definition: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse model definition %s: %w", path, err)
	}

	m := Empty()

	if doc.Version != "" {
		m.Version = doc.Version
	} else {
		m.Version = "unknown"
	}

	if doc.CreatedAt != "" {
		updatedAt, err := time.Parse(time.RFC3339, doc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse createdAt %q: %w", doc.CreatedAt, err)
		}
		m.UpdatedAt = updatedAt.UTC()
	}

	prefixes := make(map[string]string, len(doc.BinTable))
	for _, e := range doc.BinTable {
		if e.Prefix == "" || e.Country == "" {
			return nil, fmt.Errorf("binTable entry missing prefix or country: %+v", e)
		}
		prefixes[e.Prefix] = e.Country
	}
	m.Bins = NewBinIndex(prefixes)

	if doc.MCCRisk != nil {
		m.MCCRisk = doc.MCCRisk
	}
	if doc.CountryRisk != nil {
		m.CountryRisk = doc.CountryRisk
	}
	if doc.Lists != nil {
		m.Allow.Merchants = toSet(doc.Lists.Allow.MerchantIDs)
		m.Allow.Users = toSet(doc.Lists.Allow.UserIDs)
		m.Allow.Cards = toSet(doc.Lists.Allow.CardBins)
		m.Deny.IPs = toSet(doc.Lists.Deny.IPs)
		m.Deny.Devices = toSet(doc.Lists.Deny.Devices)
		m.Deny.Merchants = toSet(doc.Lists.Deny.MerchantIDs)
	}
	m.DisposableDomains = toSet(doc.DisposableDomains)
	if doc.Weights != nil {
		m.Weights = doc.Weights
	}
	if doc.Thresholds != nil {
		m.Thresholds = *doc.Thresholds
	}

	velocity, err := compileVelocity(doc.Velocity)
	if err != nil {
		return nil, err
	}
	m.Velocity = velocity

	rules, err := c.compileRules(doc.Rules)
	if err != nil {
		return nil, err
	}
	m.Rules = rules

	return m, nil
}

func compileVelocity(doc *velocityDoc) (VelocityModel, error) {
	v := VelocityModel{
		Windows: DefaultVelocityWindows,
		Limits:  map[string]map[string]int{},
		Caps:    map[string]int{},
	}
	if doc != nil {
		if len(doc.Windows) > 0 {
			v.Windows = doc.Windows
		}
		if doc.Limits != nil {
			v.Limits = doc.Limits
		}
		if doc.Caps != nil {
			v.Caps = doc.Caps
		}
	}

	v.WindowDurations = make([]time.Duration, len(v.Windows))
	for i, w := range v.Windows {
		d, err := parseISODuration(w)
		if err != nil {
			return VelocityModel{}, fmt.Errorf("velocity window %q: %w", w, err)
		}
		v.WindowDurations[i] = d
	}
	return v, nil
}

func (c *Compiler) compileRules(docs []ruleDoc) ([]ExpressionRule, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	rules := make([]ExpressionRule, 0, len(docs))
	for _, doc := range docs {
		if doc.Code == "" {
			return nil, fmt.Errorf("expression rule missing code")
		}

		ast, issues := c.env.Compile(doc.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile rule %s: %w", doc.Code, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rule %s: expression must return bool, got %s", doc.Code, ast.OutputType())
		}
		program, err := c.env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program for rule %s: %w", doc.Code, err)
		}

		rules = append(rules, ExpressionRule{
			Code:    doc.Code,
			Weight:  doc.Weight,
			Program: program,
		})
	}
	return rules, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
