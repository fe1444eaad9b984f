package config

import (
	"strconv"
	"strings"
	"time"
)

func envStr(lookup LookupFunc, k, d string) string {
	if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return d
}

func envBool(lookup LookupFunc, k string, d bool) bool {
	switch strings.ToLower(envStr(lookup, k, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(lookup LookupFunc, k string, d int) int {
	if n, err := strconv.Atoi(envStr(lookup, k, "")); err == nil {
		return n
	}
	return d
}

func envDur(lookup LookupFunc, k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(envStr(lookup, k, "")); err == nil {
		return dur
	}
	return d
}
