// Package validate checks structs against `validate` tags.
//
// Rules (comma-separated):
//
//	required        non-zero value, non-empty string/slice, non-nil pointer
//	nullable        skip the remaining rules when the value is empty
//	email           plausible email address
//	url             absolute http(s) URL
//	min=N / max=N   string length, slice length or numeric value
//	gt=N / gte=N    numeric value bounds
//	lt=N / lte=N
//	in=a|b|c        value is one of the listed items
//	dive            validate each element of a slice of structs
//
// Nested structs are validated automatically. Errors are keyed by JSON
// path, e.g. "items.2.quantity" or "shippingAddress.city".
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var timeType = reflect.TypeOf(time.Time{})

// Struct validates v and returns field path -> message. An empty map means
// v is valid.
func Struct(v any) map[string]string {
	errs := make(map[string]string)
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errs
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		walk(rv, "", errs)
	}
	return errs
}

// HasErrors reports whether errs is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func walk(rv reflect.Value, prefix string, errs map[string]string) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		value := rv.Field(i)
		name := prefix + jsonName(field)
		rules := splitRules(field.Tag.Get("validate"))

		if contains(rules, "nullable") && isEmpty(value) {
			continue
		}

		failed := false
		for _, rule := range rules {
			if rule == "nullable" || rule == "dive" {
				continue
			}
			if msg := apply(rule, name, value); msg != "" {
				errs[name] = msg
				failed = true
				break
			}
		}
		if failed {
			continue
		}

		elem := indirect(value)
		switch {
		case elem.Kind() == reflect.Struct && elem.Type() != timeType && field.Tag.Get("validate") != "-":
			walk(elem, name+".", errs)
		case contains(rules, "dive") && elem.Kind() == reflect.Slice:
			for j := 0; j < elem.Len(); j++ {
				item := indirect(elem.Index(j))
				if item.Kind() == reflect.Struct {
					walk(item, fmt.Sprintf("%s.%d.", name, j), errs)
				}
			}
		}
	}
}

func apply(rule, field string, v reflect.Value) string {
	key, param, _ := strings.Cut(rule, "=")
	v = indirect(v)

	switch key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
	case "email":
		if v.Kind() == reflect.String && !emailRE.MatchString(v.String()) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "url":
		u, err := url.ParseRequestURI(fmt.Sprint(v.Interface()))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Sprintf("The %s must be a valid URL.", field)
		}
	case "min", "max":
		limit, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return ""
		}
		size, unit, ok := measure(v)
		if !ok {
			return ""
		}
		if key == "min" && size < limit {
			return fmt.Sprintf("The %s must be at least %s%s.", field, param, unit)
		}
		if key == "max" && size > limit {
			return fmt.Sprintf("The %s may not be greater than %s%s.", field, param, unit)
		}
	case "gt", "gte", "lt", "lte":
		limit, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return ""
		}
		n, ok := number(v)
		if !ok {
			return fmt.Sprintf("The %s must be a number.", field)
		}
		switch {
		case key == "gt" && !(n > limit):
			return fmt.Sprintf("The %s must be greater than %s.", field, param)
		case key == "gte" && !(n >= limit):
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		case key == "lt" && !(n < limit):
			return fmt.Sprintf("The %s must be less than %s.", field, param)
		case key == "lte" && !(n <= limit):
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
		}
	case "in":
		raw := fmt.Sprint(v.Interface())
		for _, opt := range strings.Split(param, "|") {
			if raw == opt {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	}
	return ""
}

// measure returns the comparable size of v for min/max and the unit
// used in messages.
func measure(v reflect.Value) (float64, string, bool) {
	switch v.Kind() {
	case reflect.String:
		return float64(utf8.RuneCountInString(v.String())), " characters", true
	case reflect.Slice, reflect.Map, reflect.Array:
		return float64(v.Len()), " items", true
	}
	n, ok := number(v)
	return n, "", ok
}

func number(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		return f, err == nil
	}
	return 0, false
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Invalid:
		return true
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	}
	return v.IsZero()
}

// splitRules splits on commas. "in=" lists use "|" so they never collide.
func splitRules(tag string) []string {
	if tag == "" || tag == "-" {
		return nil
	}
	parts := strings.Split(tag, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(rules []string, want string) bool {
	for _, r := range rules {
		if r == want {
			return true
		}
	}
	return false
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}
