package browser

// Point is a coordinate in viewport space.
type Point struct {
	X float64
	Y float64
}

// ElementDescriptor is one labelled option produced by an indexing pass.
// Index and Label are only valid for the pass that produced them.
type ElementDescriptor struct {
	// Target is the driver handle used to act on the element
	Target Target

	// Description is the human-readable text shown to the decision source
	Description string

	// TagWithRole summarizes the element, e.g. "button[submit]" or "a"
	TagWithRole string

	// Center is the element's center point in viewport space
	Center Point

	Index int
	Label string
}
