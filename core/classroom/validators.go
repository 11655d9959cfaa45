package classroom

import (
	"fmt"
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/textmine/backend/core"
)

var (
	inviteCodeTag   = "invitecode"
	inviteCodeText  = fmt.Sprintf("invitation code must be %d letters or digits", CodeLength)
	inviteCodeRegex = regexp.MustCompile(fmt.Sprintf(`^[0-9A-Za-z]{%d}$`, CodeLength))
)

// InitValidators registers the classroom validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(inviteCodeTag, inviteCodeValidation)
	core.RegisterCustomTranslation(validate, translator, inviteCodeTag, inviteCodeText)
}

func inviteCodeValidation(fl validator.FieldLevel) bool {
	return inviteCodeRegex.MatchString(fl.Field().String())
}
