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

// Package shell runs external programs and pipelines of them.
//
// A Shell resolves a name to a Command. Calling the Command either runs it
// to completion, feeding input and collecting output through a poll(2)
// driven multiplexer, or, in deferred mode, leaves it ready to be chained:
//
//	sh := shell.NewPipe(logger, finder, shell.DefaultConfig())
//	grep, _ := sh.Command("grep")
//	wc, _ := sh.Command("wc")
//	_, _ = grep.Call(ctx, []string{"-v", "^#"}, shell.WithInputString(text))
//	_, _ = wc.Call(ctx, []string{"-l"})
//	tail, _ := grep.Chain(wc)
//	res, err := shell.RunPipeline(ctx, tail)
//
// Each Command is single use. A run cut short by a TimeoutExpiredError can
// be finished with Command.Wait or abandoned with Command.Kill.
package shell
