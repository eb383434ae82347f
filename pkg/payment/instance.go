package payment

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// CheckoutMethod selects the checkout flow and the default instance type.
type CheckoutMethod string

const (
	MethodInternetBanking CheckoutMethod = "internet_banking"
	MethodTelCard         CheckoutMethod = "tel_card"
)

// Default instance types registered by NewInstanceFactory.
const (
	BankInstanceType    = "bank"
	TelCardInstanceType = "tel_card"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CheckoutInstance describes what is being paid for and how. Concrete
// instances embed BaseCheckoutInstance.
type CheckoutInstance interface {
	Base() *BaseCheckoutInstance
	Validate() error
}

// BaseCheckoutInstance holds the order context shared by every variant.
type BaseCheckoutInstance struct {
	OrderID     string         `mapstructure:"order_id" json:"order_id" validate:"required"`
	Amount      int64          `mapstructure:"amount" json:"amount" validate:"gte=0"`
	Currency    string         `mapstructure:"currency" json:"currency,omitempty" validate:"omitempty,len=3"`
	Description string         `mapstructure:"description" json:"description,omitempty"`
	ReturnURL   string         `mapstructure:"return_url" json:"return_url,omitempty" validate:"omitempty,url"`
	Extra       map[string]any `mapstructure:"extra" json:"extra,omitempty"`
}

func (b *BaseCheckoutInstance) Base() *BaseCheckoutInstance { return b }

// BankCheckoutInstance is an internet-banking checkout.
type BankCheckoutInstance struct {
	BaseCheckoutInstance `mapstructure:",squash"`

	BankCode string `mapstructure:"bank_code" json:"bank_code,omitempty"`
}

func (i *BankCheckoutInstance) Validate() error {
	return validateStruct(i)
}

// TelCardCheckoutInstance is a prepaid telecom card checkout.
type TelCardCheckoutInstance struct {
	BaseCheckoutInstance `mapstructure:",squash"`

	Provider string `mapstructure:"provider" json:"provider" validate:"required"`
	Serial   string `mapstructure:"serial" json:"serial" validate:"required"`
	PinCode  string `mapstructure:"pin_code" json:"pin_code" validate:"required"`
}

func (i *TelCardCheckoutInstance) Validate() error {
	return validateStruct(i)
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return err
	}
	return nil
}

// NewInstanceFactory returns a factory with the bank and tel_card types registered.
func NewInstanceFactory() *Factory[CheckoutInstance] {
	return NewFactory[CheckoutInstance]("checkout instance").
		Register(BankInstanceType, func(attrs Attributes) (CheckoutInstance, error) {
			i := &BankCheckoutInstance{}
			if err := attrs.Decode(i); err != nil {
				return nil, err
			}
			return i, nil
		}).
		Register(TelCardInstanceType, func(attrs Attributes) (CheckoutInstance, error) {
			i := &TelCardCheckoutInstance{}
			if err := attrs.Decode(i); err != nil {
				return nil, err
			}
			return i, nil
		})
}

// CheckoutResponseData is what a driver returns from a checkout.
type CheckoutResponseData interface {
	IsOK() bool
}

// ResponseData is the generic CheckoutResponseData used by the bundled drivers.
type ResponseData struct {
	OK            bool           `json:"ok"`
	TransactionID string         `json:"transaction_id,omitempty"`
	RedirectURL   string         `json:"redirect_url,omitempty"`
	Message       string         `json:"message,omitempty"`
	Raw           map[string]any `json:"raw,omitempty"`
}

func (r *ResponseData) IsOK() bool { return r.OK }
