package types

// CaptureResult is the transient outcome of one acquisition on the reader.
// At most one instance is kept alive ("last capture"); each new successful
// capture overwrites it.
type CaptureResult struct {
	Template     string `json:"template"`     // base64 template blob
	PreviewImage string `json:"previewImage"` // base64 BMP preview
	Quality      int    `json:"quality"`      // 0-100, device quality score
	NFIQ         int    `json:"nfiq"`         // 1-5, 1 = best
}
