package harvest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlug_Normalization(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain hotel url",
			in:   "https://www.booking.com/hotel/vn/muong-thanh-grand.html",
			want: "muong_thanh_grand",
		},
		{
			name: "query string ignored",
			in:   "https://www.booking.com/hotel/vn/muong-thanh-grand.html?lang=vi&aid=3",
			want: "muong_thanh_grand",
		},
		{
			name: "trailing slash ignored",
			in:   "https://example.com/hotel/vn/sea-breeze/",
			want: "sea_breeze",
		},
		{
			name: "host case ignored",
			in:   "HTTPS://WWW.Example.COM/hotel/vn/sea-breeze.html",
			want: "sea_breeze",
		},
		{
			name: "unicode degrades to skeleton",
			in:   "https://example.com/hotel/vn/nhà-nghỉ-25.html",
			want: "nh_ngh_25",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Slug(tc.in))
		})
	}
}

func TestSlug_Deterministic(t *testing.T) {
	t.Parallel()
	u := "https://www.booking.com/hotel/vn/lotus-inn.html"
	require.Equal(t, Slug(u), Slug(u))
}

func TestSlug_PathologicalInputsStillKeyed(t *testing.T) {
	t.Parallel()

	// No usable segment: must still produce a stable, non-empty key.
	a := Slug("https://example.com/")
	b := Slug("https://example.com/")
	require.NotEmpty(t, a)
	require.Equal(t, a, b)

	// Distinct degenerate inputs must not share the fallback key.
	require.NotEqual(t, Slug("https://one.example.com/"), Slug("https://two.example.com/"))

	// Unparseable garbage is still total.
	require.NotEmpty(t, Slug("::::"))
}

func TestSlugIndex_ClaimDetectsCollision(t *testing.T) {
	t.Parallel()
	ix := NewSlugIndex()

	slug, err := ix.Claim("https://a.example.com/hotel/vn/sea-breeze.html")
	require.NoError(t, err)
	require.Equal(t, "sea_breeze", slug)

	// Same URL again is fine (re-runs are expected).
	_, err = ix.Claim("https://a.example.com/hotel/vn/sea-breeze.html")
	require.NoError(t, err)

	// Same URL with a query normalizes identically, still no collision.
	_, err = ix.Claim("https://a.example.com/hotel/vn/sea-breeze.html?lang=vi")
	require.NoError(t, err)

	// A different URL mapping to the same slug must be rejected.
	_, err = ix.Claim("https://b.example.com/hotel/vn/sea-breeze.html")
	require.Error(t, err)

	var collision *SlugCollisionError
	require.ErrorAs(t, err, &collision)
	require.Equal(t, "sea_breeze", collision.Slug)
}
