package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ── Types ─────────────────────────────────────────────────────────────────────

// Errors holds validation errors, keyed by field.
// JSON output: {"errors": {"field": ["msg1", "msg2"]}}
type Errors struct {
	Bag map[string][]string `json:"errors"`
}

func (e *Errors) add(field, msg string) {
	if e.Bag == nil {
		e.Bag = make(map[string][]string)
	}
	e.Bag[field] = append(e.Bag[field], msg)
}

// Has returns true if there are any errors.
func (e *Errors) Has() bool { return len(e.Bag) > 0 }

// First returns the first error for a field.
func (e *Errors) First(field string) string {
	if msgs, ok := e.Bag[field]; ok && len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Error implements error with the first message of the first failing field.
func (e *Errors) Error() string {
	fields := make([]string, 0, len(e.Bag))
	for f := range e.Bag {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	if len(fields) == 0 {
		return "validation passed"
	}
	msg := e.First(fields[0])
	if n := len(fields) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

// ── Validator ─────────────────────────────────────────────────────────────────

// Rules is a map of field → pipe-separated rule string.
// e.g. Rules{"email": "required|email", "age": "required|numeric|min:18"}
type Rules map[string]string

// Validator validates a flat map of input values. Rules run once; later calls
// to Fails, Passes or Validate reuse the result.
type Validator struct {
	data   map[string]string
	rules  Rules
	errors *Errors
	ran    bool
}

// Make creates a new Validator.
func Make(data map[string]string, rules Rules) *Validator {
	return &Validator{
		data:   data,
		rules:  rules,
		errors: &Errors{},
	}
}

// Fails runs validation and returns true if any rule fails.
func (v *Validator) Fails() bool {
	v.validate()
	return v.errors.Has()
}

// Passes runs validation and returns true if all rules pass.
func (v *Validator) Passes() bool { return !v.Fails() }

// Validate runs validation and returns the error bag, or nil.
func (v *Validator) Validate() error {
	if v.Fails() {
		return v.errors
	}
	return nil
}

// Errors returns the validation error bag.
func (v *Validator) Errors() *Errors { return v.errors }

// ── Core validation loop ──────────────────────────────────────────────────────

func (v *Validator) validate() {
	if v.ran {
		return
	}
	v.ran = true

fields:
	for field, ruleStr := range v.rules {
		value, present := v.data[field]
		for _, rule := range strings.Split(ruleStr, "|") {
			rule = strings.TrimSpace(rule)
			if rule == "" {
				continue
			}
			name, param, _ := strings.Cut(rule, ":")

			switch name {
			case "sometimes":
				if !present {
					continue fields
				}
				continue
			case "nullable":
				if value == "" {
					continue fields
				}
				continue
			}

			check, ok := checks[name]
			if !ok {
				continue
			}
			if msg := check(input{field: field, value: value, param: param, data: v.data}); msg != "" {
				v.errors.add(field, msg)
				continue fields // stop on first failure, like Laravel's bail
			}
		}
	}
}

// ── Rules ─────────────────────────────────────────────────────────────────────

type input struct {
	field string
	value string
	param string
	data  map[string]string
}

// check returns an empty string when the rule passes, the message otherwise.
type check func(in input) string

var (
	urlRe       = regexp.MustCompile(`^https?://`)
	alphaRe     = regexp.MustCompile(`^[a-zA-Z]+$`)
	alphaNumRe  = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	alphaDashRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

var booleans = map[string]bool{"true": true, "false": true, "1": true, "0": true, "yes": true, "no": true}

var checks = map[string]check{
	"required": func(in input) string {
		if strings.TrimSpace(in.value) == "" {
			return fmt.Sprintf("The %s field is required.", in.field)
		}
		return ""
	},
	// Form values are always strings.
	"string": func(input) string { return "" },
	"numeric": func(in input) string {
		if _, err := strconv.ParseFloat(in.value, 64); err != nil {
			return fmt.Sprintf("The %s must be a number.", in.field)
		}
		return ""
	},
	"integer": func(in input) string {
		if _, err := strconv.Atoi(in.value); err != nil {
			return fmt.Sprintf("The %s must be an integer.", in.field)
		}
		return ""
	},
	"boolean": func(in input) string {
		if !booleans[strings.ToLower(in.value)] {
			return fmt.Sprintf("The %s field must be true or false.", in.field)
		}
		return ""
	},
	"email": func(in input) string {
		if _, err := mail.ParseAddress(in.value); err != nil {
			return fmt.Sprintf("The %s must be a valid email address.", in.field)
		}
		return ""
	},
	"url": matches(urlRe, "The %s must be a valid URL."),
	"min": func(in input) string {
		n, _ := strconv.Atoi(in.param)
		if utf8.RuneCountInString(in.value) < n {
			return fmt.Sprintf("The %s must be at least %d characters.", in.field, n)
		}
		return ""
	},
	"max": func(in input) string {
		n, _ := strconv.Atoi(in.param)
		if utf8.RuneCountInString(in.value) > n {
			return fmt.Sprintf("The %s may not be greater than %d characters.", in.field, n)
		}
		return ""
	},
	"size": func(in input) string {
		n, _ := strconv.Atoi(in.param)
		if utf8.RuneCountInString(in.value) != n {
			return fmt.Sprintf("The %s must be %d characters.", in.field, n)
		}
		return ""
	},
	"between": func(in input) string {
		lo, hi, ok := strings.Cut(in.param, ",")
		if !ok {
			return ""
		}
		from, _ := strconv.Atoi(strings.TrimSpace(lo))
		to, _ := strconv.Atoi(strings.TrimSpace(hi))
		if l := utf8.RuneCountInString(in.value); l < from || l > to {
			return fmt.Sprintf("The %s must be between %d and %d characters.", in.field, from, to)
		}
		return ""
	},
	"in": func(in input) string {
		if !listContains(in.param, in.value) {
			return fmt.Sprintf("The selected %s is invalid.", in.field)
		}
		return ""
	},
	"not_in": func(in input) string {
		if listContains(in.param, in.value) {
			return fmt.Sprintf("The selected %s is invalid.", in.field)
		}
		return ""
	},
	"confirmed": func(in input) string {
		if in.data[in.field+"_confirmation"] != in.value {
			return fmt.Sprintf("The %s confirmation does not match.", in.field)
		}
		return ""
	},
	"same": func(in input) string {
		if in.data[in.param] != in.value {
			return fmt.Sprintf("The %s and %s must match.", in.field, in.param)
		}
		return ""
	},
	"different": func(in input) string {
		if in.data[in.param] == in.value {
			return fmt.Sprintf("The %s and %s must be different.", in.field, in.param)
		}
		return ""
	},
	"alpha":      matches(alphaRe, "The %s may only contain letters."),
	"alpha_num":  matches(alphaNumRe, "The %s may only contain letters and numbers."),
	"alpha_dash": matches(alphaDashRe, "The %s may only contain letters, numbers, dashes and underscores."),
	"regex": func(in input) string {
		re, err := regexp.Compile(in.param)
		if err != nil || !re.MatchString(in.value) {
			return fmt.Sprintf("The %s format is invalid.", in.field)
		}
		return ""
	},
	"gt":  compare(func(a, b float64) bool { return a > b }, "The %s must be greater than %s."),
	"gte": compare(func(a, b float64) bool { return a >= b }, "The %s must be greater than or equal to %s."),
	"lt":  compare(func(a, b float64) bool { return a < b }, "The %s must be less than %s."),
	"lte": compare(func(a, b float64) bool { return a <= b }, "The %s must be less than or equal to %s."),
}

func matches(re *regexp.Regexp, format string) check {
	return func(in input) string {
		if !re.MatchString(in.value) {
			return fmt.Sprintf(format, in.field)
		}
		return ""
	}
}

// compare builds a numeric rule. Unparseable values compare as zero.
func compare(ok func(value, bound float64) bool, format string) check {
	return func(in input) string {
		f, _ := strconv.ParseFloat(in.value, 64)
		t, _ := strconv.ParseFloat(in.param, 64)
		if !ok(f, t) {
			return fmt.Sprintf(format, in.field, in.param)
		}
		return ""
	}
}

func listContains(list, value string) bool {
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == value {
			return true
		}
	}
	return false
}

// Known reports whether name is a supported rule.
func Known(name string) bool {
	switch name {
	case "sometimes", "nullable":
		return true
	}
	_, ok := checks[name]
	return ok
}
