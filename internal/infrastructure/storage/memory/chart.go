package memory

import (
	"context"
	"fmt"
	"sort"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/coa"
)

type chartRepo struct{ s *Store }

func (r *chartRepo) CreateHead(_ context.Context, h *coa.Head) error {
	return r.s.write(func(d *state) error {
		for _, x := range d.heads {
			if x.Code == h.Code {
				return apperror.NewValidation(fmt.Sprintf("head code %s already exists", h.Code))
			}
		}
		d.heads[h.ID] = *h
		return nil
	})
}

func (r *chartRepo) GetHead(_ context.Context, headID id.ID) (*coa.Head, error) {
	var out coa.Head
	err := r.s.read(func(d *state) error {
		h, ok := d.heads[headID]
		if !ok {
			return apperror.NewNotFound("head", headID)
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chartRepo) CreateSubhead(_ context.Context, sub *coa.Subhead) error {
	return r.s.write(func(d *state) error {
		d.subheads[sub.ID] = *sub
		return nil
	})
}

func (r *chartRepo) GetSubhead(_ context.Context, subheadID id.ID) (*coa.Subhead, error) {
	var out coa.Subhead
	err := r.s.read(func(d *state) error {
		sub, ok := d.subheads[subheadID]
		if !ok {
			return apperror.NewNotFound("subhead", subheadID)
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chartRepo) CreateAccountType(_ context.Context, t *coa.AccountType) error {
	return r.s.write(func(d *state) error {
		d.accountTypes[t.ID] = *t
		return nil
	})
}

func (r *chartRepo) GetAccountType(_ context.Context, typeID id.ID) (*coa.AccountType, error) {
	var out coa.AccountType
	err := r.s.read(func(d *state) error {
		t, ok := d.accountTypes[typeID]
		if !ok {
			return apperror.NewNotFound("account type", typeID)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chartRepo) CreateAccount(_ context.Context, a *coa.Account) error {
	return r.s.write(func(d *state) error {
		for _, x := range d.accounts {
			if x.Code == a.Code {
				return apperror.NewValidation(fmt.Sprintf("account code %s already exists", a.Code))
			}
		}
		d.accounts[a.ID] = *a
		return nil
	})
}

func (r *chartRepo) GetAccount(_ context.Context, accountID id.ID) (*coa.Account, error) {
	var out coa.Account
	err := r.s.read(func(d *state) error {
		a, ok := d.accounts[accountID]
		if !ok {
			return apperror.NewNotFound("account", accountID)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chartRepo) GetAccounts(_ context.Context, ids []id.ID) ([]coa.Account, error) {
	var out []coa.Account
	err := r.s.read(func(d *state) error {
		for _, aid := range ids {
			if a, ok := d.accounts[aid]; ok {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

func (r *chartRepo) SetAccountActive(_ context.Context, accountID id.ID, active bool) error {
	return r.s.write(func(d *state) error {
		a, ok := d.accounts[accountID]
		if !ok {
			return apperror.NewNotFound("account", accountID)
		}
		a.IsActive = active
		d.accounts[accountID] = a
		return nil
	})
}

func (r *chartRepo) ListAccountInfo(_ context.Context) ([]coa.AccountInfo, error) {
	var out []coa.AccountInfo
	err := r.s.read(func(d *state) error {
		for _, a := range d.accounts {
			info := coa.AccountInfo{Account: a}
			if t, ok := d.accountTypes[a.TypeID]; ok {
				info.Kind = t.Kind
			}
			if sub, ok := d.subheads[a.SubheadID]; ok {
				info.Family = d.heads[sub.HeadID].Family
			}
			out = append(out, info)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

func (r *chartRepo) UpsertCategoryMapping(_ context.Context, m *coa.CategoryMapping) error {
	return r.s.write(func(d *state) error {
		d.mappings[m.CategoryID] = *m
		return nil
	})
}

func (r *chartRepo) GetCategoryMapping(_ context.Context, categoryID id.ID) (*coa.CategoryMapping, error) {
	var out coa.CategoryMapping
	err := r.s.read(func(d *state) error {
		m, ok := d.mappings[categoryID]
		if !ok {
			return apperror.NewNotFound("category mapping", categoryID)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chartRepo) CreateParty(_ context.Context, p *coa.Party) error {
	return r.s.write(func(d *state) error {
		d.parties[p.ID] = *p
		return nil
	})
}

func (r *chartRepo) GetParty(_ context.Context, partyID id.ID) (*coa.Party, error) {
	var out coa.Party
	err := r.s.read(func(d *state) error {
		p, ok := d.parties[partyID]
		if !ok {
			return apperror.NewNotFound("party", partyID)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
