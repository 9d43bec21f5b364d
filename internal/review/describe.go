package review

import "fmt"

// MessageTemplate formats a verdict change: homework name, then verdict text.
const MessageTemplate = "Изменился статус проверки работы \"%s\". %s"

// Describe turns a homework record into a notification text.
func Describe(hw Homework) (string, error) {
	rawName, ok := hw[FieldHomeworkName]
	if !ok {
		return "", missing(FieldHomeworkName)
	}
	name, ok := rawName.(string)
	if !ok {
		return "", malformed(FieldHomeworkName, "not a string")
	}

	rawStatus, ok := hw[FieldStatus]
	if !ok {
		return "", missing(FieldStatus)
	}
	status, ok := rawStatus.(string)
	if !ok {
		return "", malformed(FieldStatus, "not a string")
	}

	verdict, ok := Verdict(status)
	if !ok {
		return "", &UnknownStatusError{Status: status}
	}
	return fmt.Sprintf(MessageTemplate, name, verdict), nil
}

// Status returns the record's status code, or "" if absent.
func (h Homework) Status() string {
	s, _ := h[FieldStatus].(string)
	return s
}

// Name returns the record's homework name, or "" if absent.
func (h Homework) Name() string {
	s, _ := h[FieldHomeworkName].(string)
	return s
}
