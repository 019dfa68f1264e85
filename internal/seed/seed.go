// Package seed loads a chart of accounts, category mappings and parties from YAML.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/tx"
	"pharmaledger/internal/domain/coa"
)

//go:embed default_chart.yaml
var defaultChart []byte

// Chart is the YAML document.
type Chart struct {
	Heads      []Head     `yaml:"heads"`
	Accounts   []Account  `yaml:"accounts"`
	Categories []Category `yaml:"categories"`
	Parties    []Party    `yaml:"parties"`
}

type Head struct {
	Code     string    `yaml:"code"`
	Name     string    `yaml:"name"`
	Family   string    `yaml:"family"`
	Subheads []Subhead `yaml:"subheads"`
}

type Subhead struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type Account struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Subhead string `yaml:"subhead"`
	// Inactive accounts are created and then switched off.
	Inactive bool `yaml:"inactive"`
}

// Category maps a product category onto account codes. ID is optional;
// without it the id is derived from the name.
type Category struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Sales string `yaml:"sales"`
	COGS  string `yaml:"cogs"`
	Stock string `yaml:"stock"`
}

type Party struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Account string `yaml:"account"`
}

// Result indexes what Apply created.
type Result struct {
	Accounts   map[string]id.ID // by code
	Categories map[string]id.ID // by name
	Parties    map[string]id.ID // by name
}

// Account returns the id of an account code, panicking when absent.
func (r *Result) Account(code string) id.ID {
	v, ok := r.Accounts[code]
	if !ok {
		panic(fmt.Sprintf("seed: unknown account %s", code))
	}
	return v
}

// Default returns the embedded pharmacy chart.
func Default() (*Chart, error) {
	var c Chart
	if err := yaml.Unmarshal(defaultChart, &c); err != nil {
		return nil, fmt.Errorf("parse default chart: %w", err)
	}
	return &c, nil
}

// Load parses a chart document.
func Load(r io.Reader) (*Chart, error) {
	var c Chart
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse chart: %w", err)
	}
	return &c, nil
}

// CategoryID derives the stable id of a named category.
func CategoryID(name string) id.ID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("pharmaledger/category/"+name))
}

// Apply creates the chart through the chart service in one unit of work.
func Apply(ctx context.Context, txm tx.Manager, svc *coa.Service, c *Chart) (*Result, error) {
	res := &Result{
		Accounts:   make(map[string]id.ID),
		Categories: make(map[string]id.ID),
		Parties:    make(map[string]id.ID),
	}
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return apply(ctx, svc, c, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func apply(ctx context.Context, svc *coa.Service, c *Chart, res *Result) error {
	subheads := make(map[string]id.ID)
	for _, h := range c.Heads {
		family, err := coa.ParseFamily(h.Family)
		if err != nil {
			return err
		}
		head, err := svc.CreateHead(ctx, h.Code, h.Name, family)
		if err != nil {
			return err
		}
		for _, sh := range h.Subheads {
			sub, err := svc.CreateSubhead(ctx, head.ID, sh.Code, sh.Name)
			if err != nil {
				return err
			}
			subheads[sh.Code] = sub.ID
		}
	}

	typesByKind := make(map[coa.AccountKind]id.ID)
	for _, a := range c.Accounts {
		kind := coa.AccountKind(a.Kind)
		typeID, ok := typesByKind[kind]
		if !ok {
			t, err := svc.CreateAccountType(ctx, kind, string(kind))
			if err != nil {
				return fmt.Errorf("account %s: %w", a.Code, err)
			}
			typeID = t.ID
			typesByKind[kind] = typeID
		}
		subID, ok := subheads[a.Subhead]
		if !ok {
			return fmt.Errorf("account %s: unknown subhead %s", a.Code, a.Subhead)
		}
		acc, err := svc.CreateAccount(ctx, a.Code, a.Name, typeID, subID)
		if err != nil {
			return err
		}
		if a.Inactive {
			if err := svc.SetAccountActive(ctx, acc.ID, false); err != nil {
				return err
			}
		}
		res.Accounts[a.Code] = acc.ID
	}

	ref := func(code string) (*id.ID, error) {
		if code == "" {
			return nil, nil
		}
		v, ok := res.Accounts[code]
		if !ok {
			return nil, fmt.Errorf("unknown account %s", code)
		}
		return &v, nil
	}

	for _, cat := range c.Categories {
		catID := CategoryID(cat.Name)
		if cat.ID != "" {
			parsed, err := id.Parse(cat.ID)
			if err != nil {
				return fmt.Errorf("category %s: %w", cat.Name, err)
			}
			catID = parsed
		}
		m := coa.CategoryMapping{CategoryID: catID}
		var err error
		if m.SalesAccountID, err = ref(cat.Sales); err != nil {
			return fmt.Errorf("category %s: %w", cat.Name, err)
		}
		if m.COGSAccountID, err = ref(cat.COGS); err != nil {
			return fmt.Errorf("category %s: %w", cat.Name, err)
		}
		if m.StockAccountID, err = ref(cat.Stock); err != nil {
			return fmt.Errorf("category %s: %w", cat.Name, err)
		}
		if err := svc.MapCategory(ctx, m); err != nil {
			return err
		}
		res.Categories[cat.Name] = catID
	}

	for _, p := range c.Parties {
		accountID, err := ref(p.Account)
		if err != nil {
			return fmt.Errorf("party %s: %w", p.Name, err)
		}
		party, err := svc.CreateParty(ctx, coa.PartyKind(p.Kind), p.Name, accountID)
		if err != nil {
			return err
		}
		res.Parties[p.Name] = party.ID
	}
	return nil
}
