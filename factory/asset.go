/*
Package factory provides JSON to Go asset conversion.

PURPOSE:
  Converts JSON asset definitions into fixedasset.Asset records. Input is
  validated with struct tags before any conversion, and the bookkeeping
  defaults are applied to fields left blank.

JSON SCHEMA:
  {
    "name": "Delivery van",
    "currency": "EUR",
    "depreciable_amount": "24000",
    "started_on": "2024-03-15",
    "depreciation_method": "regressive",
    "depreciation_period": "monthly",
    "depreciation_percentage": "20",
    "depreciation_fiscal_coefficient": "1.75",
    "state": "in_use"
  }

DEFAULTS:
  - currency:                        EUR
  - depreciation_period:             yearly
  - depreciation_percentage:         20
  - depreciation_fiscal_coefficient: 1.75 (regressive only)
  - state:                           draft

USAGE:
  factory := NewAssetFactory()
  asset, err := factory.ParseAsset(jsonString)

  saved, periods, err := service.Save(ctx, *asset)

SEE ALSO:
  - fixedasset/asset.go: Asset record
  - depreciation/stopdate.go: stop date derivation from the percentage
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/warp/depreciation-engine/depreciation"
	"github.com/warp/depreciation-engine/fixedasset"
)

const DefaultCurrency = "EUR"

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// AssetJSON is the JSON representation of an asset.
type AssetJSON struct {
	ID                string           `json:"id,omitempty" validate:"omitempty,max=64"`
	Name              string           `json:"name" validate:"required,max=255"`
	Currency          string           `json:"currency,omitempty" validate:"omitempty,iso4217"`
	DepreciableAmount decimal.Decimal  `json:"depreciable_amount" validate:"non_negative_decimal"`
	StartedOn         string           `json:"started_on" validate:"required,datetime=2006-01-02"`
	StoppedOn         string           `json:"stopped_on,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Method            string           `json:"depreciation_method" validate:"required,depreciation_method"`
	Period            string           `json:"depreciation_period,omitempty" validate:"omitempty,depreciation_period"`
	Percentage        *decimal.Decimal `json:"depreciation_percentage,omitempty" validate:"omitempty,positive_decimal"`
	FiscalCoefficient *decimal.Decimal `json:"depreciation_fiscal_coefficient,omitempty" validate:"omitempty,positive_decimal"`
	State             string           `json:"state,omitempty" validate:"omitempty,asset_state"`
}

// =============================================================================
// VALIDATION ERRORS
// =============================================================================

// ErrInvalidAssetJSON is wrapped by every error returned by the factory.
var ErrInvalidAssetJSON = errors.New("invalid asset definition")

// FieldError describes one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidationError lists every rule an AssetJSON failed.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Rule
	}
	return fmt.Sprintf("%s: %s", ErrInvalidAssetJSON, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidAssetJSON
}

// =============================================================================
// ASSET FACTORY
// =============================================================================

// AssetFactory converts JSON assets to fixedasset.Asset.
type AssetFactory struct {
	validate *validator.Validate
}

// NewAssetFactory creates a factory with the custom validations registered.
func NewAssetFactory() *AssetFactory {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	_ = v.RegisterValidation("iso4217", validateISO4217)
	_ = v.RegisterValidation("depreciation_method", validateDepreciationMethod)
	_ = v.RegisterValidation("depreciation_period", validateDepreciationPeriod)
	_ = v.RegisterValidation("asset_state", validateAssetState)
	_ = v.RegisterValidation("positive_decimal", validatePositiveDecimal)
	_ = v.RegisterValidation("non_negative_decimal", validateNonNegativeDecimal)
	return &AssetFactory{validate: v}
}

// ParseAsset parses a JSON string into an Asset.
func (f *AssetFactory) ParseAsset(jsonStr string) (*fixedasset.Asset, error) {
	var aj AssetJSON
	if err := json.Unmarshal([]byte(jsonStr), &aj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssetJSON, err)
	}
	return f.FromJSON(aj)
}

// FromJSON validates aj and converts it, applying defaults.
func (f *AssetFactory) FromJSON(aj AssetJSON) (*fixedasset.Asset, error) {
	if err := f.Validate(aj); err != nil {
		return nil, err
	}

	asset := &fixedasset.Asset{
		ID:                aj.ID,
		Name:              aj.Name,
		Currency:          strings.ToUpper(aj.Currency),
		DepreciableAmount: aj.DepreciableAmount,
		Method:            depreciation.Method(aj.Method),
		Period:            depreciation.Granularity(aj.Period),
		Percentage:        depreciation.DefaultPercentage,
		State:             fixedasset.State(aj.State),
	}

	// Validation already checked the layout
	asset.StartedOn = depreciation.MustParseDate(aj.StartedOn)
	if aj.StoppedOn != "" {
		asset.StoppedOn = depreciation.MustParseDate(aj.StoppedOn)
	}

	if asset.Currency == "" {
		asset.Currency = DefaultCurrency
	}
	if asset.Period == "" {
		asset.Period = depreciation.GranularityYearly
	}
	if asset.State == "" {
		asset.State = fixedasset.StateDraft
	}
	if aj.Percentage != nil {
		asset.Percentage = *aj.Percentage
	}
	switch {
	case aj.FiscalCoefficient != nil:
		asset.FiscalCoefficient = *aj.FiscalCoefficient
	case asset.Method == depreciation.MethodRegressive:
		asset.FiscalCoefficient = depreciation.DefaultFiscalCoefficient
	}

	return asset, nil
}

// Validate runs the struct rules and reports every failure at once.
func (f *AssetFactory) Validate(aj AssetJSON) error {
	err := f.validate.Struct(aj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidAssetJSON, err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// ToJSON converts an Asset to AssetJSON.
func (f *AssetFactory) ToJSON(a fixedasset.Asset) AssetJSON {
	pct := a.Percentage
	aj := AssetJSON{
		ID:                a.ID,
		Name:              a.Name,
		Currency:          a.Currency,
		DepreciableAmount: a.DepreciableAmount,
		StartedOn:         a.StartedOn.String(),
		StoppedOn:         a.StoppedOn.String(),
		Method:            string(a.Method),
		Period:            string(a.Period),
		Percentage:        &pct,
		State:             string(a.State),
	}
	if !a.FiscalCoefficient.IsZero() {
		coef := a.FiscalCoefficient
		aj.FiscalCoefficient = &coef
	}
	return aj
}

// =============================================================================
// CUSTOM VALIDATIONS
// =============================================================================

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func validateISO4217(fl validator.FieldLevel) bool {
	_, ok := depreciation.DefaultCurrencies.Precision(fl.Field().String())
	return ok
}

func validateDepreciationMethod(fl validator.FieldLevel) bool {
	return depreciation.Method(fl.Field().String()).Valid()
}

func validateDepreciationPeriod(fl validator.FieldLevel) bool {
	return depreciation.Granularity(fl.Field().String()).Valid()
}

func validateAssetState(fl validator.FieldLevel) bool {
	return fixedasset.State(fl.Field().String()).Valid()
}

func validatePositiveDecimal(fl validator.FieldLevel) bool {
	d, ok := decimalField(fl)
	return ok && d.IsPositive()
}

func validateNonNegativeDecimal(fl validator.FieldLevel) bool {
	d, ok := decimalField(fl)
	return ok && !d.IsNegative()
}

// decimalValue lets tags see decimals as their string form.
func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func decimalField(fl validator.FieldLevel) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(fl.Field().String())
	return d, err == nil
}
