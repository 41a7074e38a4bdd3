//go:build !debug

package recall

func debugLog(string, ...interface{}) {}
