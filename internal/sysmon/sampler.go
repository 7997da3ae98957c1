// Package sysmon provides the resource-usage sampler the engine polls while a
// load test is running. Samples are attached to the run result but never used
// in pass/fail decisions.
package sysmon

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Sample is one point of the resource-usage time series.
type Sample struct {
	Timestamp  time.Time `json:"timestamp"`
	CPUPercent float64   `json:"cpu_percent"`
	MemPercent float64   `json:"mem_percent"`
}

// Sampler is the contract the engine consumes. Embedders can supply their own
// implementation; HostSampler is the default.
type Sampler interface {
	Sample() (Sample, error)
}

// HostSampler reads host-wide CPU and memory usage via gopsutil.
type HostSampler struct{}

func NewHostSampler() *HostSampler { return &HostSampler{} }

func (h *HostSampler) Sample() (Sample, error) {
	s := Sample{Timestamp: time.Now()}

	// Non-blocking CPU read: percentage since the previous call.
	pcts, err := cpu.Percent(0, false)
	if err != nil {
		return s, err
	}
	if len(pcts) > 0 {
		s.CPUPercent = pcts[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return s, err
	}
	s.MemPercent = vm.UsedPercent
	return s, nil
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func() (Sample, error)

func (f SamplerFunc) Sample() (Sample, error) { return f() }
