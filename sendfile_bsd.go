//go:build darwin || freebsd || dragonfly

package evsocket

const sendfileSupported = true

// sendfileResult keeps the partial count the kernel reports alongside
// EAGAIN and EINTR.
func sendfileResult(n int, err error) (int, error) {
	if err != nil {
		if IsRetriable(err) {
			return n, nil
		}
		return 0, err
	}
	return n, nil
}
