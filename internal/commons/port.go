package commons

import "net"

// FindFreePort asks the kernel for a free TCP port.
// Tests use this to start the HTTP worker without colliding.
func FindFreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
