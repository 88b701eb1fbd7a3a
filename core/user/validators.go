package user

import (
	"github.com/go-playground/validator/v10"

	"github.com/tsfaye/sims/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"
)

func init() {
	_ = core.Validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, allRolesTag, allRolesText)
}

// allRolesValidation checks that all the roles provided are known.
func allRolesValidation(fl validator.FieldLevel) bool {
	if roles, ok := fl.Field().Interface().([]string); ok {
		for _, role := range roles {
			if RolePriority(role) == 0 {
				return false
			}
		}
		return true
	}
	return false
}
