package segments

import (
	"fmt"
	"sort"
	"strings"
)

// Category is a semantic group of metadata a caller may want removed.
type Category string

// Flag names accepted in a redaction policy mapping.
const (
	CategoryCamera      Category = "camera"
	CategoryCapture     Category = "capture"
	CategoryLocation    Category = "location"
	CategorySoftware    Category = "software"
	CategoryColorICC    Category = "color/icc"
	CategoryOrientation Category = "orientation"
	CategoryXMP         Category = "xmp"
	CategoryOther       Category = "other"
)

// allCategories fixes the bit position of every category in a Policy.
var allCategories = []Category{
	CategoryCamera,
	CategoryCapture,
	CategoryLocation,
	CategorySoftware,
	CategoryColorICC,
	CategoryOrientation,
	CategoryXMP,
	CategoryOther,
}

var categoryAliases = map[string]Category{
	"color": CategoryColorICC,
	"icc":   CategoryColorICC,
}

// dropTable maps a category to the segment kinds removed outright when the
// category is selected, across every supported format.
var dropTable = map[Category][]Kind{
	CategoryColorICC: {KindJPEGICC, KindPNGICC},
	CategoryXMP:      {KindJPEGXMP, KindPNGXMP},
	CategorySoftware: {KindPNGText, KindPNGIText, KindPNGXMP, KindPNGZText},
	CategoryOther:    {KindPNGText, KindPNGIText, KindPNGXMP, KindPNGZText},
}

// exifCategories are the categories that prune tag groups inside EXIF payloads.
var exifCategories = []Category{
	CategoryCamera,
	CategoryCapture,
	CategoryLocation,
	CategoryOrientation,
	CategorySoftware,
	CategoryOther,
}

// AllCategories returns every category in canonical order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory resolves a flag name (or alias) to a Category.
func ParseCategory(name string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	for _, c := range allCategories {
		if string(c) == key {
			return c, nil
		}
	}
	return "", fmt.Errorf("segments: unknown redaction category %q", name)
}

// Policy is the set of categories to redact. The zero value redacts nothing.
type Policy uint16

// NewPolicy returns a policy containing the given categories.
// Unknown categories are ignored.
func NewPolicy(categories ...Category) Policy {
	var p Policy
	for _, c := range categories {
		p = p.With(c)
	}
	return p
}

// FullPolicy returns a policy with every category selected.
func FullPolicy() Policy {
	return NewPolicy(allCategories...)
}

// ParsePolicy builds a Policy from a flat mapping of flag names to booleans.
// Only true flags are selected; unknown names are rejected.
func ParsePolicy(flags map[string]bool) (Policy, error) {
	var p Policy
	for name, on := range flags {
		c, err := ParseCategory(name)
		if err != nil {
			return 0, err
		}
		if on {
			p = p.With(c)
		}
	}
	return p, nil
}

// ParsePolicyList parses a comma separated list of flag names, e.g. "color/icc,xmp".
// The special value "all" selects every category.
func ParsePolicyList(list string) (Policy, error) {
	var p Policy
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if strings.EqualFold(field, "all") {
			return FullPolicy(), nil
		}
		c, err := ParseCategory(field)
		if err != nil {
			return 0, err
		}
		p = p.With(c)
	}
	return p, nil
}

func categoryBit(c Category) Policy {
	for i, known := range allCategories {
		if known == c {
			return 1 << uint(i)
		}
	}
	return 0
}

// With returns a copy of p with c selected.
func (p Policy) With(c Category) Policy {
	return p | categoryBit(c)
}

// Without returns a copy of p with c cleared.
func (p Policy) Without(c Category) Policy {
	return p &^ categoryBit(c)
}

// Has reports whether c is selected.
func (p Policy) Has(c Category) bool {
	bit := categoryBit(c)
	return bit != 0 && p&bit != 0
}

// Empty reports whether no category is selected.
func (p Policy) Empty() bool {
	return p == 0
}

// Categories returns the selected categories in canonical order.
func (p Policy) Categories() []Category {
	var out []Category
	for _, c := range allCategories {
		if p.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Flags renders the policy as the flat flag mapping it was parsed from.
func (p Policy) Flags() map[string]bool {
	out := make(map[string]bool, len(allCategories))
	for _, c := range allCategories {
		out[string(c)] = p.Has(c)
	}
	return out
}

// String implements fmt.Stringer.
func (p Policy) String() string {
	cats := p.Categories()
	if len(cats) == 0 {
		return "none"
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ",")
}

// Drops reports whether a segment of kind k is removed outright under p.
func (p Policy) Drops(k Kind) bool {
	if k == KindNone {
		return false
	}
	for _, c := range p.Categories() {
		for _, dk := range dropTable[c] {
			if dk == k {
				return true
			}
		}
	}
	return false
}

// TouchesEXIF reports whether p prunes any EXIF tag group.
func (p Policy) TouchesEXIF() bool {
	for _, c := range exifCategories {
		if p.Has(c) {
			return true
		}
	}
	return false
}

// DroppedKinds lists every kind removed outright under p, sorted.
func (p Policy) DroppedKinds() []Kind {
	seen := make(map[Kind]bool)
	for _, c := range p.Categories() {
		for _, k := range dropTable[c] {
			seen[k] = true
		}
	}
	out := make([]Kind, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
