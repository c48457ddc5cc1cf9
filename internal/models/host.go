package models

// HostStatus is the payload of the /status endpoint.
type HostStatus struct {
	CPU    float64     `json:"cpu"`
	Memory MemoryUsage `json:"memory"`
	Disk   []DiskUsage `json:"disk"`
	OS     OSInfo      `json:"os"`
	Uptime uint64      `json:"uptime"`
}

type MemoryUsage struct {
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
	Free  uint64 `json:"free"`
}

type DiskUsage struct {
	FS   string  `json:"fs"`
	Size uint64  `json:"size"`
	Used uint64  `json:"used"`
	Use  float64 `json:"use"`
}

type OSInfo struct {
	Platform string `json:"platform"`
	Distro   string `json:"distro"`
	Release  string `json:"release"`
	Kernel   string `json:"kernel"`
	Arch     string `json:"arch"`
	Hostname string `json:"hostname"`
}

// HostProcess is one row of the host process table.
type HostProcess struct {
	Pid        int32   `json:"pid"`
	Name       string  `json:"name"`
	User       string  `json:"user"`
	Command    string  `json:"command"`
	CPUPercent float64 `json:"cpu"`
	MemoryRSS  uint64  `json:"memRss"`
	Status     string  `json:"state"`
}
