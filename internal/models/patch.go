package models

import (
	"image"
)

// Patch represents a single square patch cut from an original image
type Patch struct {
	// Name is the base file name of the patch, used as its key in a PatchSet
	Name string

	// Path is the file the patch was loaded from
	Path string

	// Image is the decoded patch data
	Image image.Image

	// Side is the width (and height) of the patch in pixels
	Side int
}

// PatchSet is an ordered mapping from file name to Patch.
// All patches belong to one original image.
type PatchSet struct {
	names   []string
	patches map[string]*Patch

	// Side is the shared side length of every patch in the set
	Side int
}

// NewPatchSet creates an empty patch set
func NewPatchSet() *PatchSet {
	return &PatchSet{
		patches: make(map[string]*Patch),
	}
}

// Add stores p under its name. A patch with the same name replaces the
// stored one but keeps the original enumeration position.
// It reports whether an existing patch was replaced.
func (s *PatchSet) Add(p *Patch) bool {
	if _, ok := s.patches[p.Name]; ok {
		s.patches[p.Name] = p
		return true
	}
	s.names = append(s.names, p.Name)
	s.patches[p.Name] = p
	return false
}

// Len returns the number of distinct patches
func (s *PatchSet) Len() int {
	return len(s.names)
}

// Names returns the patch names in enumeration order
func (s *PatchSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Get returns the patch stored under name, or nil
func (s *PatchSet) Get(name string) *Patch {
	return s.patches[name]
}
