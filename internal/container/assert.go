package container

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/GriffinCanCode/conduit/internal/exception"
)

// Contract constrains the exported methods of a strongly typed instance
type Contract struct {
	// Skip exempts the method from every check
	Skip bool
	// Type must be satisfied by every parameter of the method
	Type reflect.Type
	// Params maps a zero based parameter position to its required type
	Params map[int]reflect.Type
}

// StronglyTyped instances declare contracts per method name. The
// container verifies them on resolution when strict assertions are on.
type StronglyTyped interface {
	Assert() map[string]Contract
}

// Assert checks obj against its contracts. Every violation is collected
// into one CLASS_INVALID exception.
func Assert(obj StronglyTyped) error {
	contracts := obj.Assert()
	if len(contracts) == 0 {
		return nil
	}

	t := reflect.TypeOf(obj)
	var violations []string

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		contract := contracts[m.Name]
		if contract.Skip {
			continue
		}
		violations = append(violations, checkMethod(m, contract)...)
	}
	if len(violations) == 0 {
		return nil
	}
	return exception.ClassInvalid(t.String(), violations)
}

func checkMethod(m reflect.Method, contract Contract) []string {
	var violations []string
	mt := m.Type

	for o := 0; o < mt.NumOut(); o++ {
		if isUntyped(mt.Out(o)) {
			violations = append(violations, fmt.Sprintf("The %s method must return a defined data type.", m.Name))
			break
		}
	}

	positions := make([]int, 0, len(contract.Params))
	for pos := range contract.Params {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	// In(0) is the receiver
	for in := 1; in < mt.NumIn(); in++ {
		pos := in - 1
		pt := mt.In(in)
		if isUntyped(pt) {
			violations = append(violations, fmt.Sprintf("The parameter #%d of the %s method must have a defined data type.", pos, m.Name))
			continue
		}
		if contract.Type != nil && !satisfies(pt, contract.Type) {
			violations = append(violations, fmt.Sprintf("The parameter #%d of the %s method must be an instance of %s.", pos, m.Name, contract.Type))
			continue
		}
		if want, ok := contract.Params[pos]; ok && want != nil && !satisfies(pt, want) {
			violations = append(violations, fmt.Sprintf("The parameter #%d of the %s method must be an instance of %s.", pos, m.Name, want))
		}
	}

	for _, pos := range positions {
		if pos >= mt.NumIn()-1 {
			violations = append(violations, fmt.Sprintf("The %s method has no parameter #%d.", m.Name, pos))
		}
	}
	return violations
}

func isUntyped(t reflect.Type) bool {
	return t.Kind() == reflect.Interface && t.NumMethod() == 0
}

func satisfies(t, want reflect.Type) bool {
	if t.AssignableTo(want) {
		return true
	}
	return want.Kind() == reflect.Interface && t.Implements(want)
}
