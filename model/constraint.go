// api/model/constraint.go
package model

import (
	"fmt"
	"strings"
)

// Constraint operators supported by the attribute model.
const (
	OpEquals   = "eq"
	OpIn       = "in"
	OpRange    = "range"
	OpContains = "contains"
	OpPrefix   = "prefix"
	OpExists   = "exists"
)

// Constraint is a single predicate against an attribute bag. Which payload
// field is used depends on the operator: Value for eq/contains/prefix,
// OneOf for in, Min/Max for range, none for exists.
type Constraint struct {
	Attribute string          `json:"attribute"`
	Operator  string          `json:"operator"`
	Value     *AttributeValue `json:"value,omitempty"`
	OneOf     []string        `json:"one_of,omitempty"`
	Min       *float64        `json:"min,omitempty"`
	Max       *float64        `json:"max,omitempty"`
}

// Validate rejects malformed constraints at policy load time.
func (c Constraint) Validate() error {
	if c.Attribute == "" {
		return fmt.Errorf("constraint attribute cannot be empty")
	}
	switch c.Operator {
	case OpEquals, OpContains, OpPrefix:
		if c.Value == nil {
			return fmt.Errorf("constraint %q with operator %q requires a value", c.Attribute, c.Operator)
		}
	case OpIn:
		if len(c.OneOf) == 0 {
			return fmt.Errorf("constraint %q with operator %q requires a non-empty set", c.Attribute, c.Operator)
		}
	case OpRange:
		if c.Min == nil && c.Max == nil {
			return fmt.Errorf("constraint %q with operator %q requires min or max", c.Attribute, c.Operator)
		}
	case OpExists:
		// no payload
	default:
		return fmt.Errorf("unknown constraint operator: %q", c.Operator)
	}
	return nil
}

// Matches evaluates the constraint against an attribute bag. A missing
// attribute always evaluates false; absence is never a wildcard match.
func (c Constraint) Matches(attrs Attributes) bool {
	actual, ok := attrs[c.Attribute]
	if !ok {
		return false
	}

	switch c.Operator {
	case OpExists:
		return true
	case OpEquals:
		return c.matchEquals(actual)
	case OpIn:
		return c.matchIn(actual)
	case OpRange:
		return actual.Kind == KindNumber &&
			(c.Min == nil || actual.Num >= *c.Min) &&
			(c.Max == nil || actual.Num <= *c.Max)
	case OpContains:
		return actual.Kind == KindString && c.Value.Kind == KindString &&
			strings.Contains(actual.Str, c.Value.Str)
	case OpPrefix:
		return actual.Kind == KindString && c.Value.Kind == KindString &&
			strings.HasPrefix(actual.Str, c.Value.Str)
	}
	return false
}

func (c Constraint) matchEquals(actual AttributeValue) bool {
	if c.Value == nil {
		return false
	}
	// An array-valued attribute equals a scalar if it contains it.
	if actual.Kind == KindStringList && c.Value.Kind == KindString {
		for _, item := range actual.List {
			if item == c.Value.Str {
				return true
			}
		}
		return false
	}
	return actual.Equal(*c.Value)
}

func (c Constraint) matchIn(actual AttributeValue) bool {
	switch actual.Kind {
	case KindString:
		for _, candidate := range c.OneOf {
			if actual.Str == candidate {
				return true
			}
		}
	case KindStringList:
		// Array-valued attribute matches on non-empty intersection.
		set := make(map[string]struct{}, len(c.OneOf))
		for _, candidate := range c.OneOf {
			set[candidate] = struct{}{}
		}
		for _, item := range actual.List {
			if _, ok := set[item]; ok {
				return true
			}
		}
	}
	return false
}

// Describe renders the constraint as a trace rule string, e.g.
// `department == "Marketing"` or `seniority in [senior staff]`.
func (c Constraint) Describe() string {
	switch c.Operator {
	case OpEquals:
		return fmt.Sprintf("%s == %s", c.Attribute, c.Value)
	case OpIn:
		return fmt.Sprintf("%s in [%s]", c.Attribute, strings.Join(c.OneOf, " "))
	case OpRange:
		switch {
		case c.Min != nil && c.Max != nil:
			return fmt.Sprintf("%s in range [%v, %v]", c.Attribute, *c.Min, *c.Max)
		case c.Min != nil:
			return fmt.Sprintf("%s >= %v", c.Attribute, *c.Min)
		default:
			return fmt.Sprintf("%s <= %v", c.Attribute, *c.Max)
		}
	case OpContains:
		return fmt.Sprintf("%s contains %s", c.Attribute, c.Value)
	case OpPrefix:
		return fmt.Sprintf("%s has prefix %s", c.Attribute, c.Value)
	case OpExists:
		return fmt.Sprintf("%s exists", c.Attribute)
	}
	return fmt.Sprintf("%s %s <invalid>", c.Attribute, c.Operator)
}
