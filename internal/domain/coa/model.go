// Package coa is the chart of accounts: Head/Subhead hierarchy, account families,
// normal-balance rules, product category mappings and party linked accounts.
package coa

import (
	"fmt"
	"strings"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
)

// Family decides on which side an account's balance grows.
type Family string

const (
	FamilyAssets    Family = "assets"
	FamilyLiability Family = "liability"
	FamilyCapital   Family = "capital"
	FamilyRevenue   Family = "revenue"
	FamilyExpense   Family = "expense"
)

// Families lists every family in reporting order.
var Families = []Family{FamilyAssets, FamilyLiability, FamilyCapital, FamilyRevenue, FamilyExpense}

// Valid reports whether f is one of the known families.
func (f Family) Valid() bool {
	switch f {
	case FamilyAssets, FamilyLiability, FamilyCapital, FamilyRevenue, FamilyExpense:
		return true
	}
	return false
}

// ParseFamily accepts any letter case.
func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", apperror.NewInvalidInput("family", fmt.Sprintf("unknown account family %q", s))
	}
	return f, nil
}

// IsDebitNormal is true for Assets and Expense, false for Liability, Capital and Revenue.
func IsDebitNormal(f Family) bool {
	switch f {
	case FamilyAssets, FamilyExpense:
		return true
	case FamilyLiability, FamilyCapital, FamilyRevenue:
		return false
	}
	panic(fmt.Sprintf("coa: unknown family %q", string(f)))
}

// AccountKind is the account type classification used to pick posting targets.
type AccountKind string

const (
	KindCash     AccountKind = "cash"
	KindBank     AccountKind = "bank"
	KindCustomer AccountKind = "customer"
	KindSupplier AccountKind = "supplier"
	KindSales    AccountKind = "sales"
	KindCOGS     AccountKind = "cogs"
	KindStock    AccountKind = "stock"
	KindExpense  AccountKind = "expense"
	KindCapital  AccountKind = "capital"
	KindOther    AccountKind = "other"
)

// Valid reports whether k is one of the known kinds.
func (k AccountKind) Valid() bool {
	switch k {
	case KindCash, KindBank, KindCustomer, KindSupplier, KindSales,
		KindCOGS, KindStock, KindExpense, KindCapital, KindOther:
		return true
	}
	return false
}

// IsMoney is true for accounts that can receive or pay out a settlement.
func (k AccountKind) IsMoney() bool {
	return k == KindCash || k == KindBank
}

// Head is the top of the hierarchy and carries the Family.
type Head struct {
	ID     id.ID  `db:"id" json:"id"`
	Code   string `db:"code" json:"code"`
	Name   string `db:"name" json:"name"`
	Family Family `db:"family" json:"family"`
}

// Subhead groups accounts under a Head.
type Subhead struct {
	ID     id.ID  `db:"id" json:"id"`
	HeadID id.ID  `db:"head_id" json:"headId"`
	Code   string `db:"code" json:"code"`
	Name   string `db:"name" json:"name"`
}

// AccountType classifies accounts by kind (Cash, Customer, Sales, ...).
type AccountType struct {
	ID   id.ID       `db:"id" json:"id"`
	Kind AccountKind `db:"kind" json:"kind"`
	Name string      `db:"name" json:"name"`
}

// Account is a leaf posting target.
type Account struct {
	ID        id.ID     `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	TypeID    id.ID     `db:"type_id" json:"typeId"`
	SubheadID id.ID     `db:"subhead_id" json:"subheadId"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Validate checks the fields required for a new account.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Code) == "" {
		return apperror.NewInvalidInput("code", "account code is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return apperror.NewInvalidInput("name", "account name is required")
	}
	if id.IsNil(a.TypeID) {
		return apperror.NewInvalidInput("typeId", "account type is required")
	}
	if id.IsNil(a.SubheadID) {
		return apperror.NewInvalidInput("subheadId", "subhead is required")
	}
	return nil
}

// CategoryMapping maps a product category onto its three posting accounts.
// Any slot may be unset; posting a sale for such a category fails.
type CategoryMapping struct {
	CategoryID     id.ID  `db:"category_id" json:"categoryId"`
	SalesAccountID *id.ID `db:"sales_account_id" json:"salesAccountId"`
	COGSAccountID  *id.ID `db:"cogs_account_id" json:"cogsAccountId"`
	StockAccountID *id.ID `db:"stock_account_id" json:"stockAccountId"`
}

// Missing names the unset slots.
func (m *CategoryMapping) Missing() []string {
	var missing []string
	if m.SalesAccountID == nil {
		missing = append(missing, "sales")
	}
	if m.COGSAccountID == nil {
		missing = append(missing, "cogs")
	}
	if m.StockAccountID == nil {
		missing = append(missing, "stock")
	}
	return missing
}

// CategoryAccounts is a fully resolved mapping.
type CategoryAccounts struct {
	CategoryID   id.ID
	SalesAccount id.ID
	COGSAccount  id.ID
	StockAccount id.ID
}

// PartyKind distinguishes customers from suppliers.
type PartyKind string

const (
	PartyCustomer PartyKind = "customer"
	PartySupplier PartyKind = "supplier"
)

// Valid reports whether k is a known party kind.
func (k PartyKind) Valid() bool {
	return k == PartyCustomer || k == PartySupplier
}

// Party is a customer or supplier with its linked receivable/payable account.
type Party struct {
	ID        id.ID     `db:"id" json:"id"`
	Kind      PartyKind `db:"kind" json:"kind"`
	Name      string    `db:"name" json:"name"`
	AccountID *id.ID    `db:"account_id" json:"accountId"`
}

// AccountInfo is an account joined with its type and family.
type AccountInfo struct {
	Account
	Kind   AccountKind `db:"kind" json:"kind"`
	Family Family      `db:"family" json:"family"`
}
