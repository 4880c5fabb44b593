package payment

import (
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/feeportal/core"
)

// Form is the card form of one payment attempt. It lives in memory only.
type Form struct {
	CardholderName string         `json:"cardholderName" validate:"notblank"`
	CardNumber     string         `json:"cardNumber" validate:"notblank,cardnumber"`
	ExpiryDate     string         `json:"expiryDate" validate:"notblank,expiry"`
	CVV            string         `json:"cvv" validate:"notblank,cvv"`
	BillingAddress BillingAddress `json:"billingAddress"`
}

type BillingAddress struct {
	Street  string `json:"street" validate:"notblank"`
	City    string `json:"city" validate:"notblank"`
	ZipCode string `json:"zipCode" validate:"notblank"`
	Country string `json:"country" validate:"notblank"`
}

// String never prints card data.
func (f Form) String() string { return "payment.Form{...}" }

func (f Form) GoString() string { return f.String() }

const invalidFormMsg = "invalid payment details"

var (
	cardNumberTag = "cardnumber"
	expiryTag     = "expiry"
	cvvTag        = "cvv"
	notBlankTag   = "notblank"

	cardSeparators = strings.NewReplacer(" ", "", "\t", "", "-", "")
	cardNumberRe   = regexp.MustCompile(`^\d{16}$`)
	expiryRe       = regexp.MustCompile(`^\d{2}/\d{2}$`) // shape only: 13/99 is accepted
	cvvRe          = regexp.MustCompile(`^\d{3,4}$`)

	fieldLabels = map[string]string{
		"cardholderName": "Cardholder name",
		"cardNumber":     "Card number",
		"expiryDate":     "Expiry date",
		"cvv":            "CVV",
		"street":         "Street address",
		"city":           "City",
		"zipCode":        "ZIP code",
		"country":        "Country",
	}
)

// NewValidator returns the validator of payment forms. Messages name the field
// ("Card number must be 16 digits"), so it is kept apart from the API validator.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	_ = validate.RegisterValidation(cardNumberTag, func(fl validator.FieldLevel) bool {
		return cardNumberRe.MatchString(cardSeparators.Replace(fl.Field().String()))
	})
	_ = validate.RegisterValidation(expiryTag, func(fl validator.FieldLevel) bool {
		return expiryRe.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = validate.RegisterValidation(cvvTag, func(fl validator.FieldLevel) bool {
		return cvvRe.MatchString(strings.TrimSpace(fl.Field().String()))
	})

	registerLabelTranslation(validate, translator, notBlankTag, "{0} is required", true)
	registerLabelTranslation(validate, translator, cardNumberTag, "{0} must be 16 digits", false)
	registerLabelTranslation(validate, translator, expiryTag, "{0} must be in MM/YY format", false)
	registerLabelTranslation(validate, translator, cvvTag, "{0} must be 3 or 4 digits", false)
	return validate, translator
}

// registerLabelTranslation is like core.RegisterCustomTranslation, with the field label as parameter.
func registerLabelTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			label, ok := fieldLabels[fe.Field()]
			if !ok {
				label = fe.Field()
			}
			s, _ := t.T(tag, label)
			return s
		},
	)
}

// Validate returns a *core.ValidationError keyed by field name ("cardNumber", "street"...).
func (f Form) Validate(validate *validator.Validate, translator ut.Translator) error {
	if err := validate.Struct(f); err != nil {
		return core.TranslateValidationErrors(err, translator, invalidFormMsg)
	}
	return nil
}
