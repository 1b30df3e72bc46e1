package models

// PacketInfo is what a client sees for one frame: a summary row, the
// decoded layers, the checksum verdicts and the raw bytes. A frame that
// failed to decode carries Failure and no layers.
type PacketInfo struct {
	Number    int              `json:"number"`
	Timestamp string           `json:"timestamp"`
	Length    int              `json:"length"`
	Captured  int              `json:"captured"`
	SrcAddr   string           `json:"srcAddr"`
	DstAddr   string           `json:"dstAddr"`
	Protocol  string           `json:"protocol"`
	Info      string           `json:"info"`
	Layers    []LayerDetail    `json:"layers"`
	Checksums []ChecksumStatus `json:"checksums,omitempty"`
	Failure   *DecodeFailure   `json:"failure,omitempty"`
	HexDump   string           `json:"hexDump"`
	RawHex    string           `json:"rawHex"`
}

// ChecksumStatus is the verification result for one layer's checksum.
type ChecksumStatus struct {
	Layer string `json:"layer"`
	Value uint16 `json:"value"`
	Valid bool   `json:"valid"`
}

// DecodeFailure says which layer rejected the frame and why.
type DecodeFailure struct {
	Layer   string `json:"layer"`
	Reason  string `json:"reason"`
	Need    int    `json:"need"`
	Have    int    `json:"have"`
	Message string `json:"message"`
}

// LayerDetail is one decoded protocol layer.
type LayerDetail struct {
	Name   string       `json:"name"`
	Fields []LayerField `json:"fields"`
}

// LayerField is a single field within a layer; flag words carry one
// child per bit.
type LayerField struct {
	Name     string       `json:"name"`
	Value    string       `json:"value"`
	Children []LayerField `json:"children,omitempty"`
}
