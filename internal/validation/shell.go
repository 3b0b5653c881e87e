// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package validation

import (
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/encoding/htmlindex"
)

func init() {
	// Cannot error: tags are non-empty and functions are non-nil.
	_ = instance.RegisterValidation("encoding", validEncoding)
	_ = instance.RegisterValidation("duration", validDuration)
}

// validEncoding accepts an empty string or any WHATWG encoding label.
func validEncoding(
	fl validator.FieldLevel,
) bool {
	name := fl.Field().String()
	if name == "" {
		return true
	}

	_, err := htmlindex.Get(name)

	return err == nil
}

// validDuration accepts a non-negative time.Duration or a string that
// parses as one.
func validDuration(
	fl validator.FieldLevel,
) bool {
	field := fl.Field()

	switch field.Kind() {
	case reflect.String:
		if field.String() == "" {
			return true
		}
		d, err := time.ParseDuration(field.String())
		return err == nil && d >= 0
	case reflect.Int64:
		return field.Int() >= 0
	default:
		return false
	}
}
