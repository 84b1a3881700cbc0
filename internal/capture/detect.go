package capture

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// ErrNoEndpoint is returned when auto-detection finds no serial ports.
var ErrNoEndpoint = errors.New("no serial endpoint found")

// PortLister enumerates attached serial ports. Tests substitute a fake;
// production code passes nil to use the system enumerator.
type PortLister func() ([]*enumerator.PortDetails, error)

// usbBridgeVIDs are the USB-serial bridge vendors the sensor boards ship
// with: Silicon Labs (CP210x), WCH (CH340), FTDI.
var usbBridgeVIDs = map[string]bool{
	"10C4": true,
	"1A86": true,
	"0403": true,
}

var bridgeProductHints = []string{"cp210", "ch340", "ftdi", "uart"}

// DetectEndpoint picks the port most likely to be a sensor board: the
// first port with a known USB bridge chip, else the first port listed.
func DetectEndpoint(list PortLister) (string, error) {
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}

	ports, err := list()
	if err != nil {
		return "", fmt.Errorf("enumerate serial ports: %w", err)
	}
	if len(ports) == 0 {
		return "", ErrNoEndpoint
	}

	for _, p := range ports {
		if p.IsUSB && usbBridgeVIDs[strings.ToUpper(p.VID)] {
			return p.Name, nil
		}
		if matchesBridgeProduct(p.Product) {
			return p.Name, nil
		}
	}

	return ports[0].Name, nil
}

func matchesBridgeProduct(product string) bool {
	product = strings.ToLower(product)
	for _, hint := range bridgeProductHints {
		if strings.Contains(product, hint) {
			return true
		}
	}
	return false
}

// PortInfo describes one attached serial port for display.
type PortInfo struct {
	Device      string
	Description string
}

// ListPorts returns the attached serial ports in enumeration order.
func ListPorts(list PortLister) ([]PortInfo, error) {
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}

	ports, err := list()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	infos := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		infos = append(infos, PortInfo{Device: p.Name, Description: describePort(p)})
	}
	return infos, nil
}

func describePort(p *enumerator.PortDetails) string {
	if !p.IsUSB {
		return "serial port"
	}

	desc := p.Product
	if desc == "" {
		desc = "USB serial device"
	}
	if p.VID != "" && p.PID != "" {
		desc = fmt.Sprintf("%s (%s:%s)", desc, p.VID, p.PID)
	}
	return desc
}
