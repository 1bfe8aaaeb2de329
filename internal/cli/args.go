// args.go - Argument parsing shared by all continuum commands.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits a command's arguments into flags and positionals.
//
//	--flag value    string flag
//	--flag=value    string flag, or a bool flag when value is a boolean
//	-f value        short string flag
//	--flag          bool flag when no value follows
//	--              everything after is positional, so edit text may
//	                start with a dash
//
// A lone "-" and negative numbers are positional.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
}

// NewArgParser parses raw. Flags named in bools never consume the next
// argument, so "--json abc" leaves "abc" positional:
//
//	p := NewArgParser([]string{"tree", "--message", "3", "--json", "abc"}, "json")
//	p.Subcommand()     // "tree"
//	p.Flag("message")  // "3"
//	p.BoolFlag("json") // true
//	p.Positional(1)    // "abc"
func NewArgParser(raw []string, bools ...string) *ArgParser {
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}
	isBool := make(map[string]bool, len(bools))
	for _, b := range bools {
		isBool[flagName(b)] = true
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		switch {
		case arg == "--":
			p.positional = append(p.positional, raw[i+1:]...)
			return p
		case !isFlag(arg):
			p.positional = append(p.positional, arg)
		default:
			if name, value, ok := strings.Cut(arg, "="); ok {
				p.setInline(flagName(name), value, isBool)
				continue
			}
			name := flagName(arg)
			if !isBool[name] && i+1 < len(raw) && raw[i+1] != "--" && !isFlag(raw[i+1]) {
				p.flags[name] = raw[i+1]
				i++
			} else {
				p.boolFlags[name] = true
			}
		}
	}
	return p
}

// setInline records --name=value. Known bool flags and literal true/false
// values land in boolFlags; an unparsable bool reads as false.
func (p *ArgParser) setInline(name, value string, isBool map[string]bool) {
	if isBool[name] || value == "true" || value == "false" {
		b, err := ParseBoolString(value)
		p.boolFlags[name] = err == nil && b
		return
	}
	p.flags[name] = value
}

func flagName(arg string) string {
	return strings.TrimLeft(arg, "-")
}

func isFlag(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' {
		return false
	}
	_, err := strconv.Atoi(arg)
	return err != nil
}

// Subcommand returns the first positional argument ("show" in
// "config show").
func (p *ArgParser) Subcommand() string {
	return p.Positional(0)
}

// Flag returns the value of a string flag, or "" when absent.
func (p *ArgParser) Flag(name string) string {
	return p.flags[flagName(name)]
}

// FlagOrDefault returns the flag value, or def when it is absent or empty.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if v := p.Flag(name); v != "" {
		return v
	}
	return def
}

// FlagIntOrDefault returns the flag as an int, or def when it is absent or
// not a number.
func (p *ArgParser) FlagIntOrDefault(name string, def int) int {
	n, err := strconv.Atoi(p.Flag(name))
	if err != nil {
		return def
	}
	return n
}

// BoolFlag returns the value of a boolean flag, false when absent.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[flagName(name)]
}

// HasFlag reports whether name was given in either form.
func (p *ArgParser) HasFlag(name string) bool {
	name = flagName(name)
	_, s := p.flags[name]
	_, b := p.boolFlags[name]
	return s || b
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns the positional arguments from index on.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return nil
	}
	return p.positional[index:]
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

// ParseIntWithValidation parses a non-negative integer named fieldName.
func ParseIntWithValidation(s string, fieldName string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%s is required", fieldName)
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", fieldName, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", fieldName, val)
	}
	return val, nil
}

// ParseBoolString accepts true/false, yes/no, y/n, 1/0 and on/off in any
// case.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value: %s", s)
}

// JoinPositionalArgs joins the positionals from startIndex with spaces, so
// "edit abc Hello there" yields "Hello there" for startIndex 1 after the
// command name is stripped.
func JoinPositionalArgs(parser *ArgParser, startIndex int) string {
	return strings.Join(parser.PositionalFrom(startIndex), " ")
}
