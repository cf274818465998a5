package mapstruct

import (
	"github.com/go-viper/mapstructure/v2"
)

// Decode maps a loosely-typed value (config layers, middleware option maps)
// onto a typed struct using json tags. Weak typing is on so yaml numbers
// decode into int64 limit fields without ceremony, and "30s"-style strings
// decode into time.Duration.
func Decode(input any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         nil,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           output,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}
