package runtime

import "fmt"

// Sequence is the unit of execution: a named, ordered list of configured
// blocks plus free-form metadata.
type Sequence struct {
	Name        string
	Description string
	Blocks      []Block
	Metadata    map[string]any
}

func NewSequence(name string) *Sequence {
	return &Sequence{Name: name, Metadata: make(map[string]any)}
}

func (s *Sequence) Append(b Block) {
	s.Blocks = append(s.Blocks, b)
}

func (s *Sequence) Insert(index int, b Block) error {
	if index < 0 || index > len(s.Blocks) {
		return fmt.Errorf("insert index %d out of range [0,%d]", index, len(s.Blocks))
	}
	s.Blocks = append(s.Blocks, nil)
	copy(s.Blocks[index+1:], s.Blocks[index:])
	s.Blocks[index] = b
	return nil
}

func (s *Sequence) RemoveAt(index int) error {
	if index < 0 || index >= len(s.Blocks) {
		return fmt.Errorf("remove index %d out of range [0,%d)", index, len(s.Blocks))
	}
	s.Blocks = append(s.Blocks[:index], s.Blocks[index+1:]...)
	return nil
}

// Remove deletes a block by reference. Returns false if it is not present.
func (s *Sequence) Remove(b Block) bool {
	for i, blk := range s.Blocks {
		if blk == b {
			s.Blocks = append(s.Blocks[:i], s.Blocks[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Sequence) Move(from, to int) error {
	if from < 0 || from >= len(s.Blocks) {
		return fmt.Errorf("move source %d out of range [0,%d)", from, len(s.Blocks))
	}
	if to < 0 || to >= len(s.Blocks) {
		return fmt.Errorf("move target %d out of range [0,%d)", to, len(s.Blocks))
	}
	b := s.Blocks[from]
	s.Blocks = append(s.Blocks[:from], s.Blocks[from+1:]...)
	s.Blocks = append(s.Blocks, nil)
	copy(s.Blocks[to+1:], s.Blocks[to:])
	s.Blocks[to] = b
	return nil
}

func (s *Sequence) BlockByID(id string) Block {
	for _, b := range s.Blocks {
		if b.ID() == id {
			return b
		}
	}
	return nil
}

func (s *Sequence) Len() int { return len(s.Blocks) }

// Validate reports every violation: an empty sequence, plus each block's own
// parameter violations prefixed with its index and display name.
func (s *Sequence) Validate() []string {
	var errs []string
	if len(s.Blocks) == 0 {
		errs = append(errs, "sequence has no blocks")
	}
	for i, b := range s.Blocks {
		for _, msg := range b.Validate() {
			errs = append(errs, fmt.Sprintf("block %d (%s): %s", i, b.Name(), msg))
		}
	}
	return errs
}
