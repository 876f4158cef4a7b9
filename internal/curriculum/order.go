package curriculum

import (
	"cmp"
	"slices"
)

// Coordinate is the (part, chapter, lesson) sort-order triple of a lesson.
type Coordinate struct {
	Part    int `json:"part"`
	Chapter int `json:"chapter"`
	Lesson  int `json:"lesson"`
}

// Compare orders coordinates canonically: by part, then chapter, then lesson.
func (c Coordinate) Compare(o Coordinate) int {
	if n := cmp.Compare(c.Part, o.Part); n != 0 {
		return n
	}
	if n := cmp.Compare(c.Chapter, o.Chapter); n != 0 {
		return n
	}
	return cmp.Compare(c.Lesson, o.Lesson)
}

// Ref points at a lesson together with its ancestors. The pointers alias the
// tree the Ref was taken from.
type Ref struct {
	Part       *Part
	Chapter    *Chapter
	Lesson     *Lesson
	Coordinate Coordinate
}

// ChapterStart reports whether the lesson is the first one of its chapter.
func (r Ref) ChapterStart() bool {
	return len(r.Chapter.Lessons) > 0 && r.Chapter.Lessons[0].ID == r.Lesson.ID
}

// Sort puts every child slice into canonical order. Stores call it after
// loading so the rest of the code can rely on slice order.
func (t *Tutorial) Sort() {
	bySortOrder := func(a, b int) int { return cmp.Compare(a, b) }
	slices.SortStableFunc(t.Parts, func(a, b Part) int { return bySortOrder(a.SortOrder, b.SortOrder) })
	for pi := range t.Parts {
		p := &t.Parts[pi]
		slices.SortStableFunc(p.Chapters, func(a, b Chapter) int { return bySortOrder(a.SortOrder, b.SortOrder) })
		for ci := range p.Chapters {
			c := &p.Chapters[ci]
			slices.SortStableFunc(c.Lessons, func(a, b Lesson) int { return bySortOrder(a.SortOrder, b.SortOrder) })
			for li := range c.Lessons {
				l := &c.Lessons[li]
				slices.SortStableFunc(l.Concepts, func(a, b Concept) int { return cmp.Compare(a.ID, b.ID) })
			}
		}
	}
}

// Walk returns every lesson in canonical order.
func (t *Tutorial) Walk() []Ref {
	var refs []Ref
	for pi := range t.Parts {
		p := &t.Parts[pi]
		for ci := range p.Chapters {
			c := &p.Chapters[ci]
			for li := range c.Lessons {
				l := &c.Lessons[li]
				refs = append(refs, Ref{
					Part:       p,
					Chapter:    c,
					Lesson:     l,
					Coordinate: Coordinate{Part: p.SortOrder, Chapter: c.SortOrder, Lesson: l.SortOrder},
				})
			}
		}
	}
	return refs
}

// First returns the first lesson in canonical order.
func (t *Tutorial) First() (Ref, bool) {
	refs := t.Walk()
	if len(refs) == 0 {
		return Ref{}, false
	}
	return refs[0], true
}

// Locate finds a lesson by ID.
func (t *Tutorial) Locate(lessonID int64) (Ref, bool) {
	for _, r := range t.Walk() {
		if r.Lesson.ID == lessonID {
			return r, true
		}
	}
	return Ref{}, false
}

// Next returns the canonical successor of the given lesson: the next lesson
// of the same chapter, else the first lesson of a later chapter of the same
// part, else the first lesson of a later part. ok is false when the lesson is
// the last one or is not part of the tree.
func (t *Tutorial) Next(lessonID int64) (Ref, bool) {
	refs := t.Walk()
	for i, r := range refs {
		if r.Lesson.ID != lessonID {
			continue
		}
		if i+1 < len(refs) {
			return refs[i+1], true
		}
		return Ref{}, false
	}
	return Ref{}, false
}

// Chapter finds a chapter by ID.
func (t *Tutorial) Chapter(id int64) *Chapter {
	for pi := range t.Parts {
		for ci := range t.Parts[pi].Chapters {
			if t.Parts[pi].Chapters[ci].ID == id {
				return &t.Parts[pi].Chapters[ci]
			}
		}
	}
	return nil
}

// Part finds a part by ID.
func (t *Tutorial) Part(id int64) *Part {
	for pi := range t.Parts {
		if t.Parts[pi].ID == id {
			return &t.Parts[pi]
		}
	}
	return nil
}

// ChapterCount returns the number of chapters across all parts.
func (t *Tutorial) ChapterCount() int {
	n := 0
	for _, p := range t.Parts {
		n += len(p.Chapters)
	}
	return n
}
