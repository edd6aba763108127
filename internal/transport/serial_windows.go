package transport

import "errors"

func openSerial(Target, Options) (Conn, error) {
	return nil, errors.New("serial targets are not supported on windows; use a tcp bridge")
}
