// Package jsonutil compares JSON documents structurally.
package jsonutil

import (
	"fmt"

	gojson "github.com/goccy/go-json"

	jsonpatch "github.com/evanphx/json-patch"
)

// Equal reports whether a and b hold the same JSON value, ignoring object
// key order and insignificant whitespace. Invalid input is an error.
func Equal(a, b string) (bool, error) {
	if err := validate("first", a); err != nil {
		return false, err
	}
	if err := validate("second", b); err != nil {
		return false, err
	}
	return jsonpatch.Equal([]byte(a), []byte(b)), nil
}

// MustEqual is like Equal but panics on invalid input. It is intended for
// tests comparing literals.
func MustEqual(a, b string) bool {
	eq, err := Equal(a, b)
	if err != nil {
		panic(err)
	}
	return eq
}

func validate(which, doc string) error {
	if gojson.Valid([]byte(doc)) {
		return nil
	}
	var v any
	if err := gojson.Unmarshal([]byte(doc), &v); err != nil {
		return fmt.Errorf("jsonutil: %s document: %w", which, err)
	}
	return fmt.Errorf("jsonutil: %s document is not valid JSON", which)
}
