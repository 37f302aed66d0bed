package joint

import (
	"fmt"
	"strings"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Kind selects the constraint a joint enforces.
type Kind int

const (
	KindNone Kind = iota
	Ground
	Sphere
	Fix
	Hinge
	Slide
)

var kindNames = map[Kind]string{
	Ground: "ground",
	Sphere: "sphere",
	Fix:    "fix",
	Hinge:  "hinge",
	Slide:  "slide",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds lists every supported joint kind in declaration order.
func Kinds() []Kind {
	return []Kind{Ground, Sphere, Fix, Hinge, Slide}
}

// ParseKind maps a kind name such as "hinge" to its Kind.
func ParseKind(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == want {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("%w: %q", dynamo.ErrUnsupportedJoint, s)
}

// constraintFor returns the constraint implementation bound to k.
func constraintFor(k Kind) (Constraint, error) {
	switch k {
	case Ground:
		return groundConstraint{}, nil
	case Sphere:
		return sphereConstraint{}, nil
	case Fix:
		return fixConstraint{}, nil
	case Hinge:
		return hingeConstraint{}, nil
	case Slide:
		return slideConstraint{}, nil
	default:
		return nil, fmt.Errorf("%w: %v", dynamo.ErrUnsupportedJoint, k)
	}
}
