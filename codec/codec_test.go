package codec

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathcosmos/recordstore/record"
)

func mt(timeString string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", timeString)
	if err != nil {
		panic(err)
	}
	return t
}

func testRecord() *record.Record {
	r := record.New()
	r.Accounts["a1"] = record.Account{ID: "a1", Name: "Ada", CreatedAt: mt("2024-01-01 10:00:00")}
	r.Classrooms["c1"] = record.Classroom{ID: "c1", Name: "Algebra 101", OwnerID: "a1"}
	r.Progress = []record.ProgressEntry{
		{ID: "p1", AccountID: "a1", ModuleID: "fractions", Score: 0.75,
			Attempts:  3,
			Skills:    map[string]float64{"add": 0.9, "simplify": 0.6},
			UpdatedAt: mt("2024-05-01 09:00:00")},
	}
	r.Achievements["w1"] = record.Achievement{ID: "w1", Code: "streak-7", EarnedBy: "a1",
		EarnedAt: mt("2024-05-02 09:00:00")}
	return r
}

func TestRoundTrip(t *testing.T) {
	for _, version := range []int{1, 2} {
		r := testRecord()
		payload, err := EncodeVersion(r, version)
		require.NoError(t, err, "version %d", version)

		got, err := Decode(payload, version)
		require.NoError(t, err, "version %d", version)
		assert.Equal(t, r, got, "version %d", version)
	}
}

func TestRoundTripAliasLikeIDs(t *testing.T) {
	// Account IDs and skill names are user data. Ones that spell like a
	// short alias must survive a save/load cycle unchanged.
	r := record.New()
	r.Accounts["at"] = record.Account{ID: "at", Name: "Avery"}
	r.Progress = []record.ProgressEntry{
		{ID: "p1", AccountID: "at", ModuleID: "fractions", Score: 0.5,
			Skills:    map[string]float64{"sc": 0.5, "ml": 0.25},
			UpdatedAt: mt("2024-05-01 09:00:00")},
	}

	for _, version := range []int{1, 2} {
		payload, err := EncodeVersion(r, version)
		require.NoError(t, err, "version %d", version)
		got, err := Decode(payload, version)
		require.NoError(t, err, "version %d", version)
		assert.Equal(t, r, got, "version %d", version)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	r := testRecord()
	p1, err := Encode(r)
	require.NoError(t, err)
	p2, err := Encode(r)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestEncodeV1UsesAliases(t *testing.T) {
	payload, err := EncodeVersion(testRecord(), 1)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(payload, "{"))
	assert.NotContains(t, payload, "insignificant whitespace")
	assert.Contains(t, payload, `"ac":`)
	assert.Contains(t, payload, `"pid":`)
	assert.NotContains(t, payload, `"accounts":`)
	assert.NotContains(t, payload, `"progressId":`)
}

func TestDecodeSniff(t *testing.T) {
	r := testRecord()

	v1, err := EncodeVersion(r, 1)
	require.NoError(t, err)
	got, err := DecodeSniff(v1)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	v2, err := EncodeVersion(r, 2)
	require.NoError(t, err)
	got, err = DecodeSniff(v2)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestDecodeMalformed(t *testing.T) {
	for _, tc := range []struct {
		name    string
		payload string
		version int
	}{
		{"truncated json", `{"ac":{"a1"`, 1},
		{"not base64", "{}*%", 2},
		{"not gzip", "bm90IGd6aXA=", 2},
		{"trailing garbage", `{} extra`, 1},
	} {
		_, err := Decode(tc.payload, tc.version)
		assert.ErrorIs(t, err, ErrMalformedPayload, tc.name)
	}

	_, err := DecodeSniff("")
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestUnsupportedVersion(t *testing.T) {
	_, err := EncodeVersion(testRecord(), 99)
	assert.Error(t, err)
	_, err = Decode("{}", 99)
	assert.Error(t, err)
}

func TestV2Compresses(t *testing.T) {
	r := record.New()
	for i := 0; i < 500; i++ {
		r.Progress = append(r.Progress, record.ProgressEntry{
			ID:        "p" + strings.Repeat("0", 5),
			AccountID: "a1",
			ModuleID:  "fractions",
			Score:     0.5,
			UpdatedAt: mt("2024-05-01 09:00:00"),
		})
	}
	v1, err := EncodeVersion(r, 1)
	require.NoError(t, err)
	v2, err := EncodeVersion(r, 2)
	require.NoError(t, err)
	assert.Less(t, len(v2), len(v1))
}
