package predict

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned by ParseKind for unsupported module kinds.
var ErrUnknownKind = errors.New("unknown module type")

// Kind selects the reasoning strategy of a module.
type Kind int

const (
	KindPredict Kind = iota
	KindChainOfThought
)

// ReasoningField is the output field chain of thought adds in front of the
// declared outputs.
const ReasoningField = "reasoning"

func (k Kind) String() string {
	switch k {
	case KindPredict:
		return "Predict"
	case KindChainOfThought:
		return "ChainOfThought"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts "Predict" and "ChainOfThought" in any case, with or
// without separators, plus the aliases "default" and "cot". Empty means Predict.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
	switch norm {
	case "", "default", "predict":
		return KindPredict, nil
	case "chainofthought", "cot":
		return KindChainOfThought, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}
