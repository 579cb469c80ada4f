package main

import (
	"fmt"
	"os"
	"strings"
)

// tristate is the value of an auto|on|off flag (--color, --ui).
type tristate uint8

const (
	stateAuto tristate = iota
	stateOn
	stateOff
)

func (s tristate) String() string {
	switch s {
	case stateOn:
		return "on"
	case stateOff:
		return "off"
	}
	return "auto"
}

func parseTristate(flag, value string) (tristate, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return stateAuto, nil
	case "on", "always", "yes":
		return stateOn, nil
	case "off", "never", "no":
		return stateOff, nil
	}
	return stateAuto, fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
}

// resolve turns the flag into a decision; detect is only consulted for auto.
func (s tristate) resolve(detect func() bool) bool {
	switch s {
	case stateOn:
		return true
	case stateOff:
		return false
	}
	return detect != nil && detect()
}

// stdoutColor is the auto rule for --color: a terminal and no NO_COLOR.
func stdoutColor() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return isTerminal(os.Stdout)
}

// stdoutInteractive is the auto rule for --ui: the progress view redraws
// lines in place, which a dumb terminal cannot do.
func stdoutInteractive() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal(os.Stdout)
}
