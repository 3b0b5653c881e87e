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

package shell

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

func lookupEncoding(
	name string,
) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}

	return enc, nil
}

func encodeText(
	enc encoding.Encoding,
	text string,
) ([]byte, error) {
	if enc == nil {
		return []byte(text), nil
	}

	return enc.NewEncoder().Bytes([]byte(text))
}

// decodeOutput converts captured output to UTF-8. Nil stays nil so an
// uncaptured stream remains distinguishable from an empty one.
func decodeOutput(
	enc encoding.Encoding,
	b []byte,
) ([]byte, error) {
	if enc == nil || b == nil {
		return b, nil
	}

	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []byte{}
	}

	return out, nil
}
