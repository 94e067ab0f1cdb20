package animation

// Style names an entrance animation.
type Style string

// Entrance styles.
const (
	Bounce  Style = "bounce"
	Slide   Style = "slide"
	Epic    Style = "epic"
	Physics Style = "physics"
)

// Valid reports whether s names a known style.
func (s Style) Valid() bool {
	switch s {
	case Bounce, Slide, Epic, Physics:
		return true
	}
	return false
}

// Styles returns every known style.
func Styles() []Style {
	return []Style{Bounce, Slide, Epic, Physics}
}
