package tarana

// Radio is the status record the cloud returns for one RN or BN.
type Radio struct {
	SerialNumber    string  `json:"serialNumber"`
	HostName        string  `json:"hostName"`
	Connected       bool    `json:"connected"`
	Online          bool    `json:"online"`
	Status          string  `json:"status"`
	LastSeen        string  `json:"lastSeen"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	ConnectedBn     string  `json:"connectedBn"`
	PrimaryBn       string  `json:"primaryBn"`
	HeightAgl       float64 `json:"heightAgl"`
	Tilt            float64 `json:"tilt"`
	AntennaAzimuth  float64 `json:"antennaAzimuth"`
	CPIID           string  `json:"cpiId"`
	SoftwareVersion string  `json:"softwareVersion"`
}

// Reachable reports whether the radio is currently attached to a base node.
// Older firmware populates only one of the two flags.
func (r *Radio) Reachable() bool {
	if r == nil {
		return false
	}
	return r.Connected || r.Online
}

// RadioConfig is the PATCH payload applied to a radio. Zero values are
// meaningful (the default configuration clears location and primary BN).
type RadioConfig struct {
	HostName       string  `json:"hostName"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DataVlan       string  `json:"dataVlan"`
	PrimaryBn      string  `json:"primaryBn"`
	HeightAgl      float64 `json:"heightAgl"`
	Tilt           float64 `json:"tilt"`
	AntennaAzimuth float64 `json:"antennaAzimuth"`
	CPIID          string  `json:"cpiId"`
}

// Speed test operation states reported by the cloud.
const (
	SpeedTestQueued    = "QUEUED"
	SpeedTestRunning   = "RUNNING"
	SpeedTestCompleted = "COMPLETED"
	SpeedTestFailed    = "FAILED"
	SpeedTestCancelled = "CANCELLED"
	SpeedTestTimeout   = "TIMEOUT"
	SpeedTestError     = "ERROR"
)

// SpeedTestResult is one poll of a speed test operation. Throughput figures
// are in Kbps as delivered by the API.
type SpeedTestResult struct {
	SerialNumber       string   `json:"serialNumber"`
	BnSerialNumber     string   `json:"bnSerialNumber"`
	OperationID        string   `json:"operationId"`
	Status             string   `json:"status"`
	Timestamp          int64    `json:"timestamp"`
	DownlinkThroughput *float64 `json:"downlinkThroughput"`
	UplinkThroughput   *float64 `json:"uplinkThroughput"`
	LatencyMillis      *float64 `json:"latencyMillis"`
	DownlinkSnr        *float64 `json:"downlinkSnr"`
	UplinkSnr          *float64 `json:"uplinkSnr"`
	Pathloss           *float64 `json:"pathloss"`
	RFLinkDistance     *float64 `json:"rfLinkDistance"`
	FailureReason      string   `json:"failureReason"`
}

// Terminal reports whether the operation reached a final state.
func (r *SpeedTestResult) Terminal() bool {
	if r == nil {
		return false
	}
	switch r.Status {
	case SpeedTestCompleted, SpeedTestFailed, SpeedTestCancelled, SpeedTestTimeout, SpeedTestError:
		return true
	}
	// Some firmware drops the status field once figures are available.
	return r.Status == "" && (r.DownlinkThroughput != nil || r.UplinkThroughput != nil)
}

// Succeeded reports whether the test completed with usable throughput data.
func (r *SpeedTestResult) Succeeded() bool {
	return r != nil && r.Status == SpeedTestCompleted && r.DownlinkThroughput != nil
}

// FirmwarePackage describes one software package available in the cloud.
type FirmwarePackage struct {
	ID   string        `json:"id"`
	Tags []FirmwareTag `json:"tags"`
}

// FirmwareTag labels a firmware package ("Stable", "Beta", ...).
type FirmwareTag struct {
	Name string `json:"name"`
}

// Stable reports whether the package carries the Stable tag.
func (p FirmwarePackage) Stable() bool {
	for _, tag := range p.Tags {
		if tag.Name == "Stable" {
			return true
		}
	}
	return false
}
