package layout

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding so equal plans encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("layout: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalPlan serializes a Plan to CBOR bytes.
func MarshalPlan(p *Plan) ([]byte, error) {
	return cborEncMode.Marshal(p)
}

// UnmarshalPlan deserializes a Plan from CBOR bytes.
func UnmarshalPlan(data []byte) (*Plan, error) {
	var p Plan
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("layout: unmarshal plan: %w", err)
	}
	if p.Version != PlanVersion {
		return nil, fmt.Errorf("layout: plan version %d, want %d", p.Version, PlanVersion)
	}
	return &p, nil
}
