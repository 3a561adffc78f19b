package config

//go:generate go tool go-enum -f=$GOFILE --marshal --names

// Specification of story block layout in the source page.
// ENUM(story-illustration, wrapped-image, regex)
type Layout int

// Structural reports whether blocks for the layout are located by walking
// markup rather than by regular expression.
func (l Layout) Structural() bool {
	return l == LayoutStoryIllustration || l == LayoutWrappedImage
}
