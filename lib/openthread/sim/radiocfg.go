package sim

import (
	"strconv"
	"strings"

	"github.com/samber/oops"

	"github.com/go-otbr/go-otbr/lib/openthread"
)

// parseRadioConfig turns the command-line radio config string into a dataset.
// The format is whitespace-separated key=value pairs:
//
//	name=OpenThread-sim panid=0x1234 xpanid=dead00beef00cafe channel=15 pskc=<hex>
//
// Unknown keys are rejected so typos surface at boot instead of silently
// producing an uncommissioned node.
func parseRadioConfig(raw string) (openthread.Dataset, error) {
	dataset := openthread.Dataset{Channel: 11}

	for _, field := range strings.Fields(raw) {
		key, value, found := strings.Cut(field, "=")
		if !found {
			return dataset, oops.Errorf("radio config entry %q is not key=value: %w", field, openthread.ErrInvalidArgs)
		}
		switch key {
		case "name":
			dataset.NetworkName = value
		case "panid":
			panid, err := strconv.ParseUint(value, 0, 16)
			if err != nil {
				return dataset, oops.Errorf("radio config panid %q: %w", value, err)
			}
			dataset.PanID = uint16(panid)
		case "xpanid":
			dataset.ExtendedPanID = value
		case "channel":
			channel, err := strconv.ParseUint(value, 0, 8)
			if err != nil {
				return dataset, oops.Errorf("radio config channel %q: %w", value, err)
			}
			dataset.Channel = uint8(channel)
		case "pskc":
			dataset.Pskc = value
		default:
			return dataset, oops.Errorf("unknown radio config key %q: %w", key, openthread.ErrInvalidArgs)
		}
	}

	return dataset, nil
}
