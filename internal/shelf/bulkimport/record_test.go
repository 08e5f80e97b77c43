package bulkimport

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalizeSeriesNo(t *testing.T) {
	cases := map[string]*int{
		"":      nil,
		"   ":   nil,
		"-":     nil,
		" - ":   nil,
		"n/a":   nil,
		"3":     intPtr(3),
		" 12 ":  intPtr(12),
		"3.0":   intPtr(3),
		"2nd":   intPtr(2),
		"0":     intPtr(0),
		"+4":    intPtr(4),
		"Vol 2": nil,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeSeriesNo(in))
		})
	}
}

func TestNormalizeSeriesNo_RoundTripsIntegers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 1_000_000).Draw(t, "n")
		pad := rapid.StringMatching(`[ \t]{0,3}`).Draw(t, "pad")

		got := NormalizeSeriesNo(pad + strconv.Itoa(n) + pad)
		if got == nil || *got != n {
			t.Fatalf("NormalizeSeriesNo(%q) = %v, want %d", pad+strconv.Itoa(n)+pad, got, n)
		}
	})
}

func TestNormalizeSeriesNo_NeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		got := NormalizeSeriesNo(s)
		if got != nil && strings.TrimSpace(s) == "" {
			t.Fatalf("blank input %q produced %d", s, *got)
		}
	})
}

func TestDecode_SheetExport(t *testing.T) {
	body := `{
	  "Mini Library": [
	    {"Ref No.": 1, "Title of the Book": "Dune", "Name of the Author": "Frank Herbert",
	     "Name of the Series": "Dune", "Book number of the Series": 1},
	    {"Ref No.": "2", "Title of the Book": "Café", "Name of the Author": "X",
	     "Book number of the Series": "-"}
	  ],
	  "Wishlist": [
	    {"Ref No.": 1, "Title of the Book": "Persuasion", "Name of the Author": "Austen",
	     "Book number of the Series": null, "Remarks": "hardback"}
	  ]
	}`

	b, err := ReaderSource{R: strings.NewReader(body)}.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, b.Books, 2)
	assert.Equal(t, RefNo(1), b.Books[0].RefNo)
	assert.Equal(t, 1, *b.Books[0].SeriesNo.Value)
	assert.Equal(t, RefNo(2), b.Books[1].RefNo)
	assert.Nil(t, b.Books[1].SeriesNo.Value)
	assert.Equal(t, "Café", clean(b.Books[1].Title))

	require.Len(t, b.Wishlist, 1)
	assert.Nil(t, b.Wishlist[0].SeriesNo.Value)
	assert.Equal(t, "hardback", b.Wishlist[0].Remarks)
}

func TestDecode_RejectsBadRefNo(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"Mini Library":[{"Ref No.":"abc"}]}`))
	assert.Error(t, err)
}
