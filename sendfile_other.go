//go:build netbsd

package evsocket

const sendfileSupported = false

func sendfileResult(int, error) (int, error) {
	return 0, ErrUnsupportedPlatform
}
