package device

import "fmt"

// DeviceError is a failure reported by the capture service itself via a
// non-zero ErrorCode. These are recoverable by fixing the physical setup
// (plug the reader in, free it up) and retrying manually.
type DeviceError struct {
	Code        int
	Description string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error %d: %s", e.Code, e.Description)
}

// TransportError means the capture service could not be reached or answered
// with something other than its JSON contract. Recoverable by making sure
// the service is running.
type TransportError struct {
	Op  string // "capture" | "compare"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Device error code taxonomy, as documented for the capture service.
// Anything non-zero and unlisted maps to "unknown error".
var errorDescriptions = map[int]string{
	51: "system file load failure",
	52: "sensor chip initialization failed",
	53: "device not found",
	54: "fingerprint image capture timeout",
	55: "no device available",
	56: "driver load failed",
	57: "wrong image",
	58: "lack of bandwidth",
	59: "device busy",
	60: "cannot get serial number of the device",
	61: "unsupported device",
	63: "capture service is not running",
}

func describeCode(code int) string {
	if d, ok := errorDescriptions[code]; ok {
		return d
	}
	return "unknown error"
}
