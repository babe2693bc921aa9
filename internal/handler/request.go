package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nrityalens/nrityalens/internal/model"
)

// notBlankTag は空白のみの文字列を拒否するカスタムタグ。
const notBlankTag = "notblank"

var validate = mustValidator(newValidator())

// mustValidator はパッケージ初期化時のバリデーター構築に失敗した場合にpanicする。
// カスタムタグが登録されないまま検証が素通りすることを防ぐ。
func mustValidator(v *validator.Validate, err error) *validator.Validate {
	if err != nil {
		panic(fmt.Sprintf("failed to build request validator: %v", err))
	}
	return v
}

func newValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	// エラーにはGoのフィールド名ではなくJSONのキー名を使う
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if s, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", notBlankTag, err)
	}
	return v, nil
}

// errInvalidNumber はpointsに数値として解釈できない値が指定されたことを表す。
var errInvalidNumber = errors.New("not a finite number")

// flexibleNumber はJSONの数値と数値文字列の両方を受け付ける数値。
// NaNと無限大は拒否する。
type flexibleNumber struct {
	value float64
	set   bool
}

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (n *flexibleNumber) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errInvalidNumber
		}
		raw = strings.TrimSpace(s)
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return errInvalidNumber
	}
	n.value = f
	n.set = true
	return nil
}

// decodeJSON はリクエストボディをdstにデコードし、validateタグで検証する。
// 失敗した場合はクライアントに返すAPIErrorを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) *model.APIError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, errInvalidNumber) {
			return model.NewInvalidPointsError()
		}
		return model.NewInvalidRequestError("malformed JSON body")
	}
	return validateRequest(dst)
}

// validateRequest はvalidateタグで構造体を検証する。
// 必須項目の欠落はMISSING_FIELD、それ以外の違反はINVALID_REQUESTとして返す。
func validateRequest(v any) *model.APIError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.NewInvalidRequestError(err.Error())
	}

	var missing, invalid []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", notBlankTag:
			missing = append(missing, fe.Field())
		default:
			invalid = append(invalid, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	if len(missing) > 0 {
		return model.NewMissingFieldError(missing...)
	}
	return model.NewInvalidRequestError(strings.Join(invalid, ", "))
}
