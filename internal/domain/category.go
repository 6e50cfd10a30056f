package domain

// Category is one of the labels the classification service is known to emit.
type Category string

const (
	CategoryBugReport          Category = "Bug Report"
	CategoryFeatureRequest     Category = "Feature Request"
	CategoryPricingComplaint   Category = "Pricing Complaint"
	CategoryPositiveFeedback   Category = "Positive Feedback"
	CategoryNegativeExperience Category = "Negative Experience"
	CategoryUnknown            Category = ""
)

func (c Category) String() string { return string(c) }

func (c Category) IsValid() bool {
	switch c {
	case CategoryBugReport, CategoryFeatureRequest, CategoryPricingComplaint,
		CategoryPositiveFeedback, CategoryNegativeExperience:
		return true
	}
	return false
}

// ParseCategory matches an exact label. Anything else maps to CategoryUnknown.
func ParseCategory(label string) Category {
	c := Category(label)
	if !c.IsValid() {
		return CategoryUnknown
	}
	return c
}

// IsPositive reports whether the label counts toward the positive sentiment split.
func IsPositive(label string) bool {
	return ParseCategory(label) == CategoryPositiveFeedback
}

// IsNegative reports whether the label counts toward the negative sentiment split.
func IsNegative(label string) bool {
	switch ParseCategory(label) {
	case CategoryNegativeExperience, CategoryBugReport, CategoryPricingComplaint:
		return true
	}
	return false
}

// CategoryStyle is presentational metadata for a category.
type CategoryStyle struct {
	Icon    string
	Color   string
	BgColor string
}

// FallbackStyle is used for labels outside the known set.
var FallbackStyle = CategoryStyle{Icon: "📊", Color: "#3498db", BgColor: "#eaf2f8"}

// Style returns the display style for c, or FallbackStyle when c is unknown.
func (c Category) Style() CategoryStyle {
	switch c {
	case CategoryBugReport:
		return CategoryStyle{Icon: "🐛", Color: "#e74c3c", BgColor: "#fadbd8"}
	case CategoryFeatureRequest:
		return CategoryStyle{Icon: "💡", Color: "#9b59b6", BgColor: "#ebdef0"}
	case CategoryPricingComplaint:
		return CategoryStyle{Icon: "💰", Color: "#e67e22", BgColor: "#fdebd0"}
	case CategoryPositiveFeedback:
		return CategoryStyle{Icon: "✅", Color: "#27ae60", BgColor: "#d5f4e6"}
	case CategoryNegativeExperience:
		return CategoryStyle{Icon: "😞", Color: "#c0392b", BgColor: "#f2d7d5"}
	}
	return FallbackStyle
}

// StyleFor looks up the style for a raw label.
func StyleFor(label string) CategoryStyle {
	return ParseCategory(label).Style()
}
