package util

const gib = 1024 * 1024 * 1024

// DiskSpace is the capacity of the filesystem holding a path, in bytes.
type DiskSpace struct {
	Avail uint64 `json:"avail"`
	Total uint64 `json:"total"`
}

func (d DiskSpace) AvailGB() float64 {
	return float64(d.Avail) / gib
}

func (d DiskSpace) UsedGB() float64 {
	return float64(d.Total-d.Avail) / gib
}
