// Copyright (c) 2024 John Dewey

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

package cli_test

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/retr0h/whelk/internal/cli"
)

type UITestSuite struct {
	suite.Suite
}

func TestUITestSuite(t *testing.T) {
	suite.Run(t, new(UITestSuite))
}

func captureStdout(
	fn func(),
) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	out, _ := io.ReadAll(r)
	os.Stdout = old

	return string(out)
}

func (suite *UITestSuite) TestFormatList() {
	tests := []struct {
		name string
		list []string
		want string
	}{
		{
			name: "when empty returns None",
			list: []string{},
			want: "None",
		},
		{
			name: "when single item returns it",
			list: []string{"alpha"},
			want: "alpha",
		},
		{
			name: "when multiple items joins with comma",
			list: []string{"alpha", "beta", "gamma"},
			want: "alpha, beta, gamma",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			got := cli.FormatList(tc.list)

			assert.Equal(suite.T(), tc.want, got)
		})
	}
}

func (suite *UITestSuite) TestFormatBytes() {
	tests := []struct {
		name string
		b    int
		want string
	}{
		{
			name: "when bytes",
			b:    512,
			want: "512 B",
		},
		{
			name: "when kilobytes",
			b:    5 * 1024,
			want: "5.0 KB",
		},
		{
			name: "when megabytes",
			b:    16 * 1024 * 1024,
			want: "16.0 MB",
		},
		{
			name: "when gigabytes",
			b:    3 * 1024 * 1024 * 1024,
			want: "3.0 GB",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			assert.Equal(suite.T(), tc.want, cli.FormatBytes(tc.b))
		})
	}
}

func (suite *UITestSuite) TestFormatExitCode() {
	tests := []struct {
		name     string
		code     int
		contains string
	}{
		{
			name:     "when success",
			code:     0,
			contains: "0",
		},
		{
			name:     "when failure",
			code:     3,
			contains: "3",
		},
		{
			name:     "when killed by signal",
			code:     -9,
			contains: "signal 9",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			assert.Contains(suite.T(), cli.FormatExitCode(tc.code), tc.contains)
		})
	}
}

func (suite *UITestSuite) TestPrintKV() {
	tests := []struct {
		name       string
		pairs      []string
		wantOutput bool
	}{
		{
			name:       "when valid pairs prints output",
			pairs:      []string{"Key", "Value"},
			wantOutput: true,
		},
		{
			name:       "when multiple pairs prints all",
			pairs:      []string{"Name", "test", "Status", "ok"},
			wantOutput: true,
		},
		{
			name:       "when odd number of pairs prints nothing",
			pairs:      []string{"Key"},
			wantOutput: false,
		},
		{
			name:       "when empty prints nothing",
			pairs:      []string{},
			wantOutput: false,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			output := captureStdout(func() {
				cli.PrintKV(tc.pairs...)
			})

			if tc.wantOutput {
				assert.NotEmpty(suite.T(), output)
			} else {
				assert.Empty(suite.T(), output)
			}
		})
	}
}

func (suite *UITestSuite) TestPrintCompactTable() {
	wideRow := []string{
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		"ccccccccccccccccccccccccccccccc",
		"ddddddddddddddddddddddddddddd",
		"eeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
	}

	tests := []struct {
		name     string
		sections []cli.Section
	}{
		{
			name: "when section with title renders table",
			sections: []cli.Section{
				{
					Title:   "Test",
					Headers: []string{"COL1", "COL2"},
					Rows:    [][]string{{"a", "b"}},
				},
			},
		},
		{
			name: "when section without title renders table",
			sections: []cli.Section{
				{
					Headers: []string{"COL1"},
					Rows:    [][]string{{"a"}},
				},
			},
		},
		{
			name: "when cells exceed max width truncates",
			sections: []cli.Section{
				{
					Title:   "Wide",
					Headers: []string{"A", "B", "C", "D", "E"},
					Rows:    [][]string{wideRow},
				},
			},
		},
		{
			name: "when many columns renders every header",
			sections: []cli.Section{
				{
					Headers: []string{
						"X", "Y", "Z",
						"LONG-HEADER-1", "LONG-HEADER-2",
						"LONG-HEADER-3", "LONG-HEADER-4",
						"LONG-HEADER-5", "LONG-HEADER-6",
					},
					Rows: [][]string{{
						"a", "b", "c",
						"aaaaaaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbbbbbb",
						"cccccccccccccccccccc", "dddddddddddddddddddd",
						"eeeeeeeeeeeeeeeeeeee", "ffffffffffffffffffff",
					}},
				},
			},
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			output := captureStdout(func() {
				cli.PrintCompactTable(tc.sections)
			})

			assert.NotEmpty(suite.T(), output)
		})
	}
}

func (suite *UITestSuite) TestPrintCompactTableUppercasesHeaders() {
	output := captureStdout(func() {
		cli.PrintCompactTable([]cli.Section{
			{
				Title:   "Stages",
				Headers: []string{"stage", "exit code"},
				Rows:    [][]string{{"tr", "0"}},
			},
		})
	})

	assert.True(suite.T(), strings.Contains(output, "STAGE"))
	assert.Contains(suite.T(), output, "EXIT CODE")
	assert.Contains(suite.T(), output, "Stages")
}
