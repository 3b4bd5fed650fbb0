// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHelpFile(t *testing.T) {
	md := "# Title\n\n* [foo](#foo)\n\n## Commands\n\n### foo\n\nDo the foo. More on foo \\[x\\] in [bar](#bar).\n\n" +
		"```shell\nfoo <n>\n```\n\n```bash\n> foo 1\nDone\n```\n\n### bar\n\nBar it\n"
	entries := parseHelpFile(md)
	require.Len(t, entries, 2)

	foo := entries["foo"]
	assert.Equal(t, "Do the foo.", foo.summary)
	assert.Equal(t, []string{
		"Do the foo. More on foo [x] in [bar].",
		"", "Definition:", "  foo <n>",
		"", "Example:", "  > foo 1", "  Done",
	}, foo.lines)
	assert.Equal(t, "Bar it", entries["bar"].summary)
}

func TestHelpOutput(t *testing.T) {
	h := newHelp()
	names := h.commandNames()
	assert.Contains(t, names, "sch")
	assert.Contains(t, names, "energy")
	assert.True(t, len(names) > 20)

	general := h.outputGeneralHelp()
	assert.True(t, strings.HasPrefix(general, "add "))
	assert.Contains(t, general, "'help <command>'")

	sch := h.outputCommandHelp("sch")
	assert.True(t, strings.HasPrefix(sch, "sch\n  Start or stop service channel access of a device."))
	assert.Contains(t, sch, "Definition:")
	assert.Contains(t, h.outputCommandHelp("fly"), "(Non-existent command.)")
}
