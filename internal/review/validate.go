package review

import (
	"math"
	"strconv"
)

const (
	FieldHomeworks    = "homeworks"
	FieldCurrentDate  = "current_date"
	FieldStatus       = "status"
	FieldHomeworkName = "homework_name"
)

// Homework is a single record of the "homeworks" list.
// Unknown keys are kept and ignored.
type Homework map[string]any

// Response is a structurally validated API answer.
type Response struct {
	// Homeworks are ordered most recent first.
	Homeworks []Homework
	// CurrentDate is the server time to use as the next cursor.
	// Zero when the field was absent and allowed to be.
	CurrentDate    int64
	HasCurrentDate bool
}

type validateOptions struct {
	requireCurrentDate bool
}

type ValidateOption func(*validateOptions)

// WithCurrentDateOptional accepts answers without "current_date".
func WithCurrentDateOptional() ValidateOption {
	return func(o *validateOptions) { o.requireCurrentDate = false }
}

// WithRequireCurrentDate toggles the "current_date" presence check.
func WithRequireCurrentDate(required bool) ValidateOption {
	return func(o *validateOptions) { o.requireCurrentDate = required }
}

// Validate enforces the expected shape of a decoded API payload.
//
// Checks run in order and stop at the first failure:
// mapping, "homeworks" present, "homeworks" is a list, "current_date"
// present (unless optional) and integral, every record is a mapping.
func Validate(payload any, opts ...ValidateOption) (Response, error) {
	o := validateOptions{requireCurrentDate: true}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	m, ok := payload.(map[string]any)
	if !ok {
		return Response{}, malformed("", "not a mapping")
	}

	rawList, ok := m[FieldHomeworks]
	if !ok {
		return Response{}, missing(FieldHomeworks)
	}
	list, ok := rawList.([]any)
	if !ok {
		return Response{}, malformed(FieldHomeworks, "homeworks not a list")
	}

	var resp Response
	if rawDate, ok := m[FieldCurrentDate]; ok {
		ts, ok := asInt64(rawDate)
		if !ok {
			return Response{}, malformed(FieldCurrentDate, "not an integer timestamp")
		}
		resp.CurrentDate = ts
		resp.HasCurrentDate = true
	} else if o.requireCurrentDate {
		return Response{}, missing(FieldCurrentDate)
	}

	resp.Homeworks = make([]Homework, 0, len(list))
	for i, it := range list {
		hw, ok := it.(map[string]any)
		if !ok {
			return Response{}, malformed(FieldHomeworks+"["+strconv.Itoa(i)+"]", "not a mapping")
		}
		resp.Homeworks = append(resp.Homeworks, Homework(hw))
	}
	return resp, nil
}

type int64er interface {
	Int64() (int64, error)
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	case int64er:
		n, err := x.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}
