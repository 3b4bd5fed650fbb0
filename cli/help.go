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
	"bufio"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"
)

const (
	defaultTermWidth = 80
	helpIndent       = "  "
)

var (
	cmdHeaderPattern  = regexp.MustCompile(`^###\s+(\S+)`)
	linkTargetPattern = regexp.MustCompile(`\(#[a-z]+\)`)
)

//go:embed README.md
var cliHelpFile string

// helpEntry is the help of one command, taken from its section of the command reference.
type helpEntry struct {
	summary string
	lines   []string
}

// Help displays the CLI command reference to the user.
type Help struct {
	termWidth uint
	entries   map[string]*helpEntry
}

func newHelp() Help {
	h := Help{
		termWidth: defaultTermWidth,
		entries:   parseHelpFile(cliHelpFile),
	}
	h.update()
	return h
}

// update takes the width of the user's terminal into account.
func (help *Help) update() {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	if width, _, err := term.GetSize(fd); err == nil && width > 0 {
		help.termWidth = uint(width)
	}
}

func (help *Help) commandNames() []string {
	names := make([]string, 0, len(help.entries))
	for name := range help.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// outputGeneralHelp lists all commands with the first sentence of their help.
func (help *Help) outputGeneralHelp() string {
	var sb strings.Builder
	for _, name := range help.commandNames() {
		fmt.Fprintf(&sb, "%-15s %s\n", name, help.entries[name].summary)
	}
	sb.WriteString(wordwrap.WrapString("\nFor detailed help per command, use: 'help <command>'\n", help.termWidth))
	return sb.String()
}

func (help *Help) outputCommandHelp(command string) string {
	help.update()
	entry, ok := help.entries[command]
	if !ok {
		return fmt.Sprintf("%s\n%s(Non-existent command.)\n", command, helpIndent)
	}

	var sb strings.Builder
	sb.WriteString(command + "\n")
	width := help.termWidth - uint(len(helpIndent))
	for _, line := range entry.lines {
		for _, wrapped := range strings.Split(wordwrap.WrapString(line, width), "\n") {
			sb.WriteString(helpIndent + wrapped + "\n")
		}
	}
	return sb.String()
}

// parseHelpFile splits the markdown command reference into one entry per "### <command>" section.
// Code blocks become indented "Definition:" and "Example:" paragraphs.
func parseHelpFile(md string) map[string]*helpEntry {
	entries := map[string]*helpEntry{}
	var cur *helpEntry
	inBlock := false

	scanner := bufio.NewScanner(strings.NewReader(md))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")
		if m := cmdHeaderPattern.FindStringSubmatch(line); m != nil {
			cur = &helpEntry{}
			entries[m[1]] = cur
			inBlock = false
			continue
		}
		if cur == nil || strings.HasPrefix(line, "#") {
			continue
		}

		switch line {
		case "```shell":
			cur.lines = append(cur.lines, "", "Definition:")
			inBlock = true
		case "```bash":
			cur.lines = append(cur.lines, "", "Example:")
			inBlock = true
		case "```":
			inBlock = false
		case "":
		default:
			if inBlock {
				cur.lines = append(cur.lines, helpIndent+line)
				continue
			}
			text := markdownUnquote(strings.TrimSpace(line))
			if cur.summary == "" {
				cur.summary = firstSentence(text)
			}
			cur.lines = append(cur.lines, text)
		}
	}
	return entries
}

func firstSentence(s string) string {
	if idx := strings.Index(s, ". "); idx > 0 {
		return s[:idx+1]
	}
	return s
}

func markdownUnquote(md string) string {
	md = strings.ReplaceAll(md, "\\", "")
	md = linkTargetPattern.ReplaceAllString(md, "")
	return md
}
