package alert

import (
	"fmt"
	"time"
)

const jurisdictionUS = "US"

// now is replaced in tests.
var now = time.Now

// Normalize dispatches a record to the mapper for its source. It fails
// only when the record does not carry the variant its Kind names.
func Normalize(r Record) (NormalizedAlert, error) {
	switch r.Kind {
	case SourceFDA:
		if r.FDA != nil {
			return MapFDA(*r.FDA), nil
		}
	case SourceFSIS:
		if r.FSIS != nil {
			return MapFSIS(*r.FSIS), nil
		}
	case SourceCDC:
		if r.CDC != nil {
			return MapCDC(*r.CDC), nil
		}
	case SourceEPA:
		if r.EPA != nil {
			return MapEPA(*r.EPA), nil
		}
	case SourceFederalRegister:
		if r.FederalRegister != nil {
			return MapFederalRegister(*r.FederalRegister), nil
		}
	case SourceRegulationsGov:
		if r.RegulationsGov != nil {
			return MapRegulationsGov(*r.RegulationsGov), nil
		}
	default:
		return NormalizedAlert{}, fmt.Errorf("unknown record kind %q", r.Kind)
	}
	return NormalizedAlert{}, fmt.Errorf("%s record has no payload", r.Kind)
}
