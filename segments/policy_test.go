package segments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		flags   map[string]bool
		want    []Category
		wantErr bool
	}{
		{
			name:  "empty mapping",
			flags: map[string]bool{},
			want:  nil,
		},
		{
			name:  "all false is empty",
			flags: map[string]bool{"camera": false, "xmp": false, "color/icc": false},
			want:  nil,
		},
		{
			name:  "exact flag names",
			flags: map[string]bool{"color/icc": true, "software": true, "location": false},
			want:  []Category{CategorySoftware, CategoryColorICC},
		},
		{
			name:  "aliases",
			flags: map[string]bool{"icc": true, "Color": true, "XMP": true},
			want:  []Category{CategoryColorICC, CategoryXMP},
		},
		{
			name:    "unknown flag",
			flags:   map[string]bool{"thumbnail": true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePolicy(tt.flags)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Categories())
		})
	}
}

func TestParsePolicyList(t *testing.T) {
	p, err := ParsePolicyList("xmp, color/icc,,orientation")
	require.NoError(t, err)
	assert.Equal(t, "color/icc,orientation,xmp", p.String())

	p, err = ParsePolicyList("all")
	require.NoError(t, err)
	assert.Equal(t, FullPolicy(), p)
	assert.Len(t, p.Categories(), len(AllCategories()))

	p, err = ParsePolicyList("")
	require.NoError(t, err)
	assert.True(t, p.Empty())
	assert.Equal(t, "none", p.String())

	_, err = ParsePolicyList("gps")
	require.Error(t, err)
}

func TestPolicySetOperations(t *testing.T) {
	p := NewPolicy(CategoryCamera, CategoryXMP)
	assert.True(t, p.Has(CategoryCamera))
	assert.False(t, p.Has(CategoryLocation))

	p = p.With(CategoryLocation).Without(CategoryCamera)
	assert.Equal(t, []Category{CategoryLocation, CategoryXMP}, p.Categories())

	flags := p.Flags()
	assert.Len(t, flags, 8)
	assert.True(t, flags["location"])
	assert.False(t, flags["camera"])

	roundTrip, err := ParsePolicy(flags)
	require.NoError(t, err)
	assert.Equal(t, p, roundTrip)
}

func TestPolicyDropTable(t *testing.T) {
	tests := []struct {
		category Category
		drops    []Kind
		keeps    []Kind
	}{
		{
			category: CategoryColorICC,
			drops:    []Kind{KindJPEGICC, KindPNGICC},
			keeps:    []Kind{KindJPEGXMP, KindJPEGEXIF, KindPNGText, KindPNGXMP, KindPNGEXIF, KindNone},
		},
		{
			category: CategoryXMP,
			drops:    []Kind{KindJPEGXMP, KindPNGXMP},
			keeps:    []Kind{KindJPEGICC, KindPNGText, KindPNGIText, KindJPEGEXIF},
		},
		{
			category: CategorySoftware,
			drops:    []Kind{KindPNGText, KindPNGIText, KindPNGXMP, KindPNGZText},
			keeps:    []Kind{KindJPEGICC, KindJPEGXMP, KindPNGICC, KindPNGEXIF},
		},
		{
			category: CategoryCamera,
			keeps:    []Kind{KindJPEGICC, KindJPEGXMP, KindJPEGEXIF, KindPNGText, KindPNGEXIF},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			p := NewPolicy(tt.category)
			for _, k := range tt.drops {
				assert.True(t, p.Drops(k), "expected %s to drop %s", tt.category, k)
			}
			for _, k := range tt.keeps {
				assert.False(t, p.Drops(k), "expected %s to keep %s", tt.category, k)
			}
		})
	}
}

func TestPolicyTouchesEXIF(t *testing.T) {
	assert.False(t, NewPolicy(CategoryColorICC, CategoryXMP).TouchesEXIF())
	for _, c := range []Category{CategoryCamera, CategoryCapture, CategoryLocation, CategoryOrientation, CategorySoftware, CategoryOther} {
		assert.True(t, NewPolicy(c).TouchesEXIF(), string(c))
	}
}

func TestPolicyDroppedKinds(t *testing.T) {
	p := NewPolicy(CategorySoftware, CategoryOther, CategoryColorICC)
	assert.Equal(t, []Kind{KindJPEGICC, KindPNGICC, KindPNGIText, KindPNGXMP, KindPNGText, KindPNGZText}, p.DroppedKinds())
}
