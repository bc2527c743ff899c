package api

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string
}

// RecordView is one decoded record.
type RecordView struct {
	Offset int    `json:"offset"`
	Code   uint8  `json:"code"`
	Name   string `json:"name"`
	Length int    `json:"length"`
	Value  string `json:"value"`
}

// ImageView is the decoded state of a device image.
type ImageView struct {
	Device        int          `json:"device"`
	Valid         bool         `json:"valid"`
	Signature     string       `json:"signature,omitempty"`
	Version       uint8        `json:"version,omitempty"`
	TotalLength   int          `json:"total_length"`
	Free          int          `json:"free"`
	ChecksumValid bool         `json:"checksum_valid"`
	Modified      bool         `json:"modified"`
	Records       []RecordView `json:"records"`
	CorruptOffset *int         `json:"corrupt_offset,omitempty"`
}

// SetRecordRequest carries the operator text for a record value.
type SetRecordRequest struct {
	Value string `json:"value"`
}

// CodeView describes a known record code.
type CodeView struct {
	Code uint8  `json:"code"`
	Name string `json:"name"`
}

// BoardView is the board identity derived from the stored Part Numbers.
type BoardView struct {
	CPU     string `json:"cpu,omitempty"`
	Carrier string `json:"carrier,omitempty"`
	FDTFile string `json:"fdtfile"`
}

// SnapshotView describes one stored copy of a device image.
type SnapshotView struct {
	ID     string `json:"id"`
	Device int    `json:"device"`
	Size   int    `json:"size"`
	Time   string `json:"time"`
}
