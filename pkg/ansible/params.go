package ansible

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/Harrysk/ibm.qradar/shared/common"
)

// paramTag names the struct tag that maps a field to its module parameter
const paramTag = "mapstructure"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return paramName(field)
	})
	return v
}

// Decode converts raw module parameters into out, which must be a pointer to a
// struct carrying mapstructure and validate tags. Values are converted the way
// Ansible converts them ("10" to 10, "yes" to true). Unknown parameters,
// conversion failures and failed constraints are reported together as a
// ValidationFailed error.
func Decode(params map[string]interface{}, out interface{}) error {
	var errs common.ValidationErrors
	var meta mapstructure.Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       ansibleTypesHook,
		WeaklyTypedInput: true,
		Metadata:         &meta,
		Result:           out,
		TagName:          paramTag,
	})
	if err != nil {
		return common.ErrInternal("failed to build parameter decoder").WithCause(err)
	}

	decodeErr := decoder.Decode(params)

	if len(meta.Unused) > 0 {
		sort.Strings(meta.Unused)
		errs.Add(strings.Join(meta.Unused, ", "), "Unsupported parameters", nil)
	}

	if decodeErr != nil {
		var mapErr *mapstructure.Error
		if errors.As(decodeErr, &mapErr) {
			sort.Strings(mapErr.Errors)
			for _, msg := range mapErr.Errors {
				errs.Add("", "unable to convert argument: "+msg, nil)
			}
		} else {
			errs.Add("", decodeErr.Error(), nil)
		}
		return errs.ToAppError()
	}

	if err := validate.Struct(out); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return common.ErrInternal("failed to validate parameters").WithCause(err)
		}
		translateFieldErrors(reflect.TypeOf(out).Elem(), fieldErrs, &errs)
	}

	if errs.HasErrors() {
		return errs.ToAppError()
	}
	return nil
}

// translateFieldErrors turns validator failures into the messages Ansible
// prints for the matching argument_spec checks.
func translateFieldErrors(structType reflect.Type, fieldErrs validator.ValidationErrors, errs *common.ValidationErrors) {
	var missing []string
	var exclusive, oneOf, other []common.ValidationError

	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			missing = append(missing, fe.Field())
		case "excluded_with":
			exclusive = append(exclusive, common.ValidationError{
				Field:   lookupParamName(structType, fe.Param()) + "|" + fe.Field(),
				Message: "parameters are mutually exclusive",
			})
		case "required_without":
			oneOf = append(oneOf, common.ValidationError{
				Field:   fe.Field() + ", " + lookupParamName(structType, fe.Param()),
				Message: "one of the following is required",
			})
		case "oneof":
			other = append(other, common.ValidationError{
				Message: fmt.Sprintf("value of %s must be one of: %s, got: %v",
					fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value()),
				Value: fe.Value(),
			})
		default:
			other = append(other, common.ValidationError{
				Message: fmt.Sprintf("argument %s failed the %s check", fe.Field(), fe.Tag()),
				Value:   fe.Value(),
			})
		}
	}

	*errs = append(*errs, exclusive...)
	if len(missing) > 0 {
		sort.Strings(missing)
		errs.Add(strings.Join(missing, ", "), "missing required arguments", nil)
	}
	*errs = append(*errs, oneOf...)
	*errs = append(*errs, other...)
}

// lookupParamName maps a Go field name used in a cross-field tag back to its
// parameter name.
func lookupParamName(structType reflect.Type, fieldName string) string {
	if field, ok := structType.FieldByName(fieldName); ok {
		return paramName(field)
	}
	return fieldName
}

func paramName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get(paramTag), ",", 2)[0]
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

// ansibleTypesHook covers the conversions weak decoding gets wrong for
// Ansible: booleans such as "yes" and "off", decimal-only integer strings
// ("010" is 10), and floats that are not whole numbers.
func ansibleTypesHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	switch to.Kind() {
	case reflect.Bool:
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "on", "y", "1", "true", "t":
			return true, nil
		case "no", "off", "n", "0", "false", "f":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a valid boolean", s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch v := data.(type) {
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("%v is not an integer", v)
			}
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not an integer", v)
			}
			return n, nil
		}
	}
	return data, nil
}
