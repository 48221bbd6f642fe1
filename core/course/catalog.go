package course

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is an immutable, ordered set of courses indexed by id. It is safe
// for concurrent use.
type Catalog struct {
	courses []Course
	index   map[string]int
}

// NewCatalog validates courses and builds a catalog preserving their order.
func NewCatalog(courses []Course) (*Catalog, error) {
	c := &Catalog{
		courses: make([]Course, len(courses)),
		index:   make(map[string]int, len(courses)),
	}
	copy(c.courses, courses)

	for i, crs := range c.courses {
		switch {
		case crs.ID == "":
			return nil, fmt.Errorf("%w: course at position %d has no id", ErrInvalidCatalog, i)
		case crs.PriceInCents < 0:
			return nil, fmt.Errorf("%w: course[%s] has negative price %d", ErrInvalidCatalog, crs.ID, crs.PriceInCents)
		case !crs.Level.Valid():
			return nil, fmt.Errorf("%w: course[%s] has unknown level %q", ErrInvalidCatalog, crs.ID, crs.Level)
		}

		if _, dup := c.index[crs.ID]; dup {
			return nil, fmt.Errorf("%w: duplicated course id %q", ErrInvalidCatalog, crs.ID)
		}
		c.index[crs.ID] = i
	}

	return c, nil
}

// Default returns the catalog built from Courses.
func Default() *Catalog {
	c, err := NewCatalog(Courses)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) FindByID(id string) (Course, bool) {
	i, ok := c.index[id]
	if !ok {
		return Course{}, false
	}
	return c.courses[i], true
}

// ListAll returns every course in definition order. The slice is a copy.
func (c *Catalog) ListAll() []Course {
	out := make([]Course, len(c.courses))
	copy(out, c.courses)
	return out
}

// Filter returns the courses matching every non-empty criterion of f, in
// definition order.
func (c *Catalog) Filter(f Filter) []Course {
	term := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]Course, 0, len(c.courses))
	for _, crs := range c.courses {
		if term != "" &&
			!strings.Contains(strings.ToLower(crs.Name), term) &&
			!strings.Contains(strings.ToLower(crs.Description), term) &&
			!strings.Contains(strings.ToLower(crs.Instructor), term) {
			continue
		}

		if f.Level != "" && crs.Level != f.Level {
			continue
		}

		if !f.Price.matches(crs.PriceInCents) {
			continue
		}

		out = append(out, crs)
	}
	return out
}

func (b PriceBand) matches(price int64) bool {
	switch b {
	case Free:
		return price == 0
	case Under100:
		return price < 10000
	case Under200:
		return price < 20000
	}
	return true
}
