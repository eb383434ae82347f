package providers

import (
	"github.com/go-playground/validator/v10"
	"github.com/trngon/payment/pkg/payment"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// MerchantType is the merchant type built from configuration.
const MerchantType = "default"

// Merchant is a merchant account configured for a gateway.
type Merchant struct {
	payment.BaseMerchant `mapstructure:",squash"`

	Name   string `mapstructure:"name" json:"name,omitempty"`
	Secret string `mapstructure:"secret" json:"-"`
	Email  string `mapstructure:"email" json:"email,omitempty" validate:"omitempty,email"`
}

// NewMerchant decodes attrs into a Merchant bound to attrs.Gateway().
func NewMerchant(attrs payment.Attributes) (payment.Merchant, error) {
	m := &Merchant{}
	if err := attrs.Decode(m); err != nil {
		return nil, err
	}
	if m.MerchantID == "" {
		return nil, payment.NewValidationError("id", "required")
	}
	if err := validate.Struct(m); err != nil {
		return nil, err
	}
	m.Bind(attrs.Gateway())
	return m, nil
}

// NewMerchantFactory returns a merchant factory with MerchantType registered.
func NewMerchantFactory() *payment.Factory[payment.Merchant] {
	return payment.NewFactory[payment.Merchant]("merchant").
		Register(MerchantType, NewMerchant)
}
