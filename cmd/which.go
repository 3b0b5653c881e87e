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

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retr0h/whelk/internal/cli"
)

var whichCmd = &cobra.Command{
	Use:   "which NAME...",
	Short: "Show the executable each name resolves to",
	Long: `Show the executable each name resolves to. A name that is not found
as given is retried with underscores replaced by dashes.
`,
	Args: cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		finder := newFinder()

		paths := make(map[string]string, len(args))
		rows := make([][]string, 0, len(args))
		var missing int
		for _, name := range args {
			path, err := finder.Find(name)
			if err != nil {
				logger.Debug("lookup failed", "name", name, "error", err.Error())
				missing++
				rows = append(rows, []string{name, cli.DimStyle.Render("not found")})
				continue
			}
			paths[name] = path
			rows = append(rows, []string{name, path})
		}

		if jsonOutput {
			b, err := json.Marshal(paths)
			if err != nil {
				cli.LogFatal(logger, "failed to marshal paths", err)
			}
			fmt.Println(string(b))
		} else {
			cli.PrintCompactTable([]cli.Section{{
				Headers: []string{"Name", "Path"},
				Rows:    rows,
			}})
		}

		if missing > 0 {
			osExit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(whichCmd)
}
