package views

import (
	"context"

	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/client/router"
	"github.com/atinyakov/GophBank/internal/models"
)

// TransfersModel lists the accounts money can move between.
type TransfersModel struct {
	Accounts []models.Account
}

// Transfers moves money between accounts.
type Transfers struct {
	env *Env
}

func NewTransfers(env *Env) *Transfers {
	return &Transfers{env: env}
}

func (t *Transfers) Load(ctx context.Context) (any, error) {
	accounts, err := t.env.Cache.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]models.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.Active {
			active = append(active, a)
		}
	}
	return TransfersModel{Accounts: active}, nil
}

// Transfer checks the form and sends it.
func (t *Transfers) Transfer(ctx context.Context, tr models.Transfer) error {
	var err error
	switch {
	case tr.FromAccountID == "" || tr.ToAccountID == "":
		err = apperr.Validation("transfer", "select both accounts")
	case tr.FromAccountID == tr.ToAccountID:
		err = apperr.Validation("transfer", "cannot transfer to the same account")
	default:
		err = requirePositive("transfer", tr.Amount)
	}
	if err != nil {
		return t.env.report(router.Transfers, err)
	}

	err = t.env.Mutator.Run(ctx, "transfer", func(ctx context.Context) error {
		return t.env.Remote.Transfer(ctx, tr)
	}, moneyMoved...)
	return t.env.report(router.Transfers, err)
}
