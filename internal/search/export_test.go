package search

// Terms returns the vocabulary in dimension order.
func (s *VectorSpace) Terms() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

// Index reports the dimension of term, if it is in the vocabulary.
func (s *VectorSpace) Index(term string) (int, bool) {
	if s == nil {
		return 0, false
	}
	idx, ok := s.vocabulary[term]
	return idx, ok
}
