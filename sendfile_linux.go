package evsocket

const sendfileSupported = true

func sendfileResult(n int, err error) (int, error) {
	if err != nil {
		if IsRetriable(err) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}
