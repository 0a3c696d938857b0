package hardware

import (
	"strings"

	nkerrors "github.com/computerscienceiscool/nodekit/internal/errors"
)

// DeviceRecord is the normalized form of a device. CPU records carry only
// the address.
type DeviceRecord struct {
	Address string `json:"address"`
	Product string `json:"product,omitempty"`
	Vendor  string `json:"vendor,omitempty"`
}

// ExtractGPURecords maps display descriptors to address/product/vendor records
func ExtractGPURecords(descs []Descriptor) ([]DeviceRecord, error) {
	records := make([]DeviceRecord, 0, len(descs))
	for i, d := range descs {
		address, err := busAddress(i, d)
		if err != nil {
			return nil, err
		}
		if d.Product == nil {
			return nil, &nkerrors.MalformedDescriptorError{Index: i, Field: "product"}
		}
		if d.Vendor == nil {
			return nil, &nkerrors.MalformedDescriptorError{Index: i, Field: "vendor"}
		}
		records = append(records, DeviceRecord{
			Address: address,
			Product: *d.Product,
			Vendor:  *d.Vendor,
		})
	}
	return records, nil
}

// ExtractCPURecords returns the address of the first processor only.
// Callers wanting every socket use ExtractAllCPURecords.
func ExtractCPURecords(descs []Descriptor) ([]DeviceRecord, error) {
	if len(descs) == 0 {
		return []DeviceRecord{}, nil
	}
	return ExtractAllCPURecords(descs[:1])
}

// ExtractAllCPURecords returns the address of every processor
func ExtractAllCPURecords(descs []Descriptor) ([]DeviceRecord, error) {
	records := make([]DeviceRecord, 0, len(descs))
	for i, d := range descs {
		address, err := busAddress(i, d)
		if err != nil {
			return nil, err
		}
		records = append(records, DeviceRecord{Address: address})
	}
	return records, nil
}

// busAddress returns the part of businfo after "@", e.g. "pci@0000:01:00.0"
// gives "0000:01:00.0"
func busAddress(index int, d Descriptor) (string, error) {
	if d.BusInfo == nil {
		return "", &nkerrors.MalformedDescriptorError{Index: index, Field: "businfo"}
	}
	parts := strings.Split(*d.BusInfo, "@")
	if len(parts) < 2 {
		return "", &nkerrors.MalformedDescriptorError{
			Index:  index,
			Field:  "businfo",
			Reason: `has no "@" separator`,
		}
	}
	return parts[1], nil
}
