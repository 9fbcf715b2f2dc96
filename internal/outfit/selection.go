package outfit

// Selection is the subset of {A, B} the user has checked.
type Selection struct {
	a, b bool
}

// NewSelection returns a selection holding opts.
func NewSelection(opts ...Option) Selection {
	var s Selection
	for _, o := range opts {
		s.Set(o, true)
	}
	return s
}

// Set checks or unchecks o.
func (s *Selection) Set(o Option, on bool) {
	switch o {
	case OptionA:
		s.a = on
	case OptionB:
		s.b = on
	}
}

// Toggle flips o.
func (s *Selection) Toggle(o Option) {
	s.Set(o, !s.Has(o))
}

// Has reports whether o is checked.
func (s Selection) Has(o Option) bool {
	switch o {
	case OptionA:
		return s.a
	case OptionB:
		return s.b
	}
	return false
}

// Empty reports whether nothing is checked.
func (s Selection) Empty() bool { return !s.a && !s.b }

// Clear unchecks everything.
func (s *Selection) Clear() { *s = Selection{} }

// Options returns the checked options in A, B order.
func (s Selection) Options() []Option {
	var out []Option
	if s.a {
		out = append(out, OptionA)
	}
	if s.b {
		out = append(out, OptionB)
	}
	return out
}

// Labels returns the checked options as strings, for history records.
func (s Selection) Labels() []string {
	opts := s.Options()
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = string(o)
	}
	return out
}
