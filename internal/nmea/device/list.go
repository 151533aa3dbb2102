package device

import (
	"go.bug.st/serial/enumerator"
)

type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial,omitempty"`
	Product      string `json:"product,omitempty"`
}

// ListDevices returns the serial ports present on the host.
func ListDevices() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	list := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		list = append(list, PortInfo{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	return list, nil
}
