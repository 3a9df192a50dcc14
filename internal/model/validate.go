package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"martianoff/flowc/flowerr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the shape of m and the consistency of its references. All
// issues are reported together in a *flowerr.ValidationError.
func Validate(m *Model) error {
	var issues []string
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating model: %w", err)
		}
		for _, fe := range verrs {
			issues = append(issues, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
		}
	}
	issues = append(issues, checkMessages(m)...)
	issues = append(issues, checkFlows(m)...)
	if len(issues) > 0 {
		return flowerr.NewValidationError("model is invalid", issues)
	}
	return nil
}

func checkMessages(m *Model) []string {
	var issues []string
	seen := make(map[string]bool)
	for i, msg := range m.Messages {
		if seen[msg.Name] {
			issues = append(issues, fmt.Sprintf("messages[%d]: duplicate message %q", i, msg.Name))
		}
		seen[msg.Name] = true
		if msg.Name == Placeholder {
			issues = append(issues, fmt.Sprintf("messages[%d]: placeholder name %q", i, Placeholder))
		}
		if msg.Type == MessageEvent && msg.Source == "" {
			issues = append(issues, fmt.Sprintf("messages[%d]: event %q has no source", i, msg.Name))
		}
		if msg.Type != MessageEvent && msg.Source != "" {
			issues = append(issues, fmt.Sprintf("messages[%d]: %s %q must not have a source", i, msg.Type, msg.Name))
		}
	}
	names := make(map[string]bool)
	for i, in := range m.Integrations {
		if names[in.Name] {
			issues = append(issues, fmt.Sprintf("integrations[%d]: duplicate integration %q", i, in.Name))
		}
		names[in.Name] = true
	}
	return issues
}

func checkFlows(m *Model) []string {
	var issues []string
	for fi, flow := range m.Flows {
		for si, slice := range flow.Slices {
			at := fmt.Sprintf("flows[%d].slices[%d]", fi, si)
			if slice.Type == SliceReact && slice.Client != nil {
				issues = append(issues, at+": react slices have no client")
			}
			if slice.Type == SliceReact && slice.Request != "" {
				issues = append(issues, at+": react slices have no request")
			}
			for _, via := range slice.Via {
				if _, ok := m.Integration(via); !ok {
					issues = append(issues, fmt.Sprintf("%s.via: unknown integration %q", at, via))
				}
			}
			for ri, rule := range slice.Server.Specs.Rules {
				for ei, ex := range rule.Examples {
					exAt := fmt.Sprintf("%s.server.specs.rules[%d].examples[%d]", at, ri, ei)
					issues = append(issues, checkExample(m, slice.Type, exAt, ex)...)
				}
			}
		}
	}
	return issues
}

func checkExample(m *Model, kind SliceType, at string, ex Example) []string {
	var issues []string
	for i, r := range ex.Given {
		issues = append(issues, checkRef(m, fmt.Sprintf("%s.given[%d]", at, i), r)...)
	}
	if ex.When != nil {
		if kind == SliceReact && !ex.When.Multi {
			issues = append(issues, at+".when: react slices expect an array")
		}
		if kind != SliceReact && ex.When.Multi {
			issues = append(issues, at+".when: only react slices take an array")
		}
		for i, r := range ex.When.Refs {
			issues = append(issues, checkRef(m, fmt.Sprintf("%s.when[%d]", at, i), r)...)
		}
	}
	for i, o := range ex.Then {
		if o.Error != nil {
			if o.Ref.keyCount() > 0 {
				issues = append(issues, fmt.Sprintf("%s.then[%d]: error outcome carries a ref", at, i))
			}
			continue
		}
		issues = append(issues, checkRef(m, fmt.Sprintf("%s.then[%d]", at, i), o.Ref)...)
	}
	return issues
}

func checkRef(m *Model, at string, r Ref) []string {
	switch n := r.keyCount(); {
	case n == 0:
		return []string{at + ": no ref key set"}
	case n > 1:
		return []string{at + ": more than one ref key set"}
	}
	name := r.Name()
	if name == Placeholder {
		return []string{fmt.Sprintf("%s: unresolved %s reference", at, Placeholder)}
	}
	msg, ok := m.Message(name)
	if !ok {
		return []string{fmt.Sprintf("%s: unknown message %q", at, name)}
	}
	if msg.Type != r.Kind() {
		return []string{fmt.Sprintf("%s: %q is a %s but is referenced as %sRef", at, name, msg.Type, r.Kind())}
	}
	return nil
}
