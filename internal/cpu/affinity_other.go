//go:build !linux

package cpu

// pinToCore is not available outside Linux; the thread stays locked but unpinned.
func pinToCore(int) error {
	return ErrUnsupported
}

func setNice(int) error {
	return ErrUnsupported
}
