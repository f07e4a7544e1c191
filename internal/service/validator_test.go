package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capecontrol/backend/internal/domain"
	"github.com/capecontrol/backend/internal/service"
)

func TestValidateRegistration(t *testing.T) {
	valid := service.RegisterParams{Email: "ada@example.com", Username: "ada.l+ops", Password: "s3cret!Pass"}

	tests := []struct {
		name   string
		mutate func(p *service.RegisterParams)
		field  string
	}{
		{"valid", func(*service.RegisterParams) {}, ""},
		{"blank username", func(p *service.RegisterParams) { p.Username = "" }, "username"},
		{"unicode username", func(p *service.RegisterParams) { p.Username = "José_2" }, ""},
		{"cyrillic username", func(p *service.RegisterParams) { p.Username = "Анна" }, ""},
		{"username with slash", func(p *service.RegisterParams) { p.Username = "ada/l" }, "username"},
		{"username with space", func(p *service.RegisterParams) { p.Username = "ada l" }, "username"},
		{"blank email", func(p *service.RegisterParams) { p.Email = "" }, "email"},
		{"email without domain", func(p *service.RegisterParams) { p.Email = "ada" }, "email"},
		{"email with display name", func(p *service.RegisterParams) { p.Email = "Ada <ada@example.com>" }, "email"},
		{"short password", func(p *service.RegisterParams) { p.Password = "a1b2" }, "password"},
		{"password without digit", func(p *service.RegisterParams) { p.Password = "onlyletters" }, "password"},
		{"password without letter", func(p *service.RegisterParams) { p.Password = "12345678" }, "password"},
		{"password with space", func(p *service.RegisterParams) { p.Password = "has space 123" }, "password"},
		{"password contains username", func(p *service.RegisterParams) { p.Username = "grace"; p.Password = "Grace2024" }, "password"},
	}

	v := service.NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := valid
			tt.mutate(&params)

			err := v.ValidateRegistration(params)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}
