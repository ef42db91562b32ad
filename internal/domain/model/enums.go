package model

// Color is the fixed palette tag of a house.
type Color string

// Known house colors.
const (
	ColorTagore Color = "tagore"
	ColorGandhi Color = "gandhi"
	ColorNehru  Color = "nehru"
	ColorDelany Color = "delany"
)

// Valid reports whether c is one of the known colors.
func (c Color) Valid() bool {
	switch c {
	case ColorTagore, ColorGandhi, ColorNehru, ColorDelany:
		return true
	}
	return false
}

// Category is the age bracket of an event.
type Category string

// Known categories. CategoryAll is only meaningful on templates.
const (
	CategoryJunior Category = "Junior"
	CategoryMiddle Category = "Middle"
	CategorySenior Category = "Senior"
	CategoryAll    Category = "All"
)

// ValidForEvent reports whether c may be used on a recorded event result.
func (c Category) ValidForEvent() bool {
	switch c {
	case CategoryJunior, CategoryMiddle, CategorySenior:
		return true
	}
	return false
}

// ValidForTemplate reports whether c may be used on an event template.
func (c Category) ValidForTemplate() bool {
	return c == CategoryAll || c.ValidForEvent()
}

// ResultType selects the scoring table.
type ResultType string

// Known result types.
const (
	Individual ResultType = "Individual"
	Group      ResultType = "Group"
)

// Valid reports whether t is a known result type.
func (t ResultType) Valid() bool {
	return t == Individual || t == Group
}
