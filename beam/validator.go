package beam

import "strings"

// Validator decides whether outcome may follow the prior outcomes at
// position i.
type Validator interface {
	Valid(i int, tokens, prior []string, outcome string) bool
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(i int, tokens, prior []string, outcome string) bool

// Valid implements Validator.
func (f ValidatorFunc) Valid(i int, tokens, prior []string, outcome string) bool {
	return f(i, tokens, prior, outcome)
}

// NoopValidator accepts every outcome.
type NoopValidator struct{}

// Valid implements Validator.
func (NoopValidator) Valid(int, []string, []string, string) bool { return true }

// BIOValidator enforces chunk tagging consistency: an "I-x" label must
// follow "B-x" or "I-x".
type BIOValidator struct{}

// Valid implements Validator.
func (BIOValidator) Valid(_ int, _, prior []string, outcome string) bool {
	typ, ok := strings.CutPrefix(outcome, "I-")
	if !ok {
		return true
	}
	if len(prior) == 0 {
		return false
	}
	last := prior[len(prior)-1]
	return last == "B-"+typ || last == "I-"+typ
}

type knownLabels struct {
	known []string
	inner Validator
}

// KnownLabels forces the label at every position where known holds a
// non-empty entry and defers to inner elsewhere. A nil inner accepts
// everything.
func KnownLabels(known []string, inner Validator) Validator {
	if inner == nil {
		inner = NoopValidator{}
	}
	return knownLabels{known: known, inner: inner}
}

func (k knownLabels) Valid(i int, tokens, prior []string, outcome string) bool {
	if i < len(k.known) && k.known[i] != "" && k.known[i] != outcome {
		return false
	}
	return k.inner.Valid(i, tokens, prior, outcome)
}
