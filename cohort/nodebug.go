//go:build !debug

package cohort

func debugLog(string, ...interface{}) {}
