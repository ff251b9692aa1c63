package views

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/client/router"
	"github.com/atinyakov/GophBank/internal/models"
)

// ProfileModel is the signed-in user.
type ProfileModel struct {
	User *models.User
}

// Profile shows and edits the user record.
type Profile struct {
	env *Env
}

func NewProfile(env *Env) *Profile {
	return &Profile{env: env}
}

func (p *Profile) Load(ctx context.Context) (any, error) {
	return ProfileModel{User: p.env.Session.User()}, nil
}

// Update sends the non-empty fields and reloads the user record.
func (p *Profile) Update(ctx context.Context, u models.ProfileUpdate) error {
	u.FullName = strings.TrimSpace(u.FullName)
	u.Email = strings.TrimSpace(u.Email)
	if u.Empty() {
		return p.env.report(router.Profile, apperr.Validation("update profile", "nothing to update"))
	}
	err := p.env.Mutator.Run(ctx, "update profile", func(ctx context.Context) error {
		if err := p.env.Remote.UpdateProfile(ctx, u); err != nil {
			return err
		}
		// the update went through; a stale user record is only logged
		if err := p.env.Session.RefreshProfile(ctx); err != nil {
			p.env.logger().Warn("profile reload failed", zap.Error(err))
		}
		return nil
	})
	return p.env.report(router.Profile, err)
}
