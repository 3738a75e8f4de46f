package bucket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanrevenue/internal/core"
)

func TestSnapshot_RoundTripKeepsRecords(t *testing.T) {
	s := NewStore(WithClock(newFakeClock().Now))
	b, err := s.Upsert("creator", "Creator", 2024, 1, append(sampleRecords(), core.TransactionRecord{
		Amount: 10, Kind: "other", Target: core.UnknownName, BuyerID: core.UnknownName,
	}))
	require.NoError(t, err)

	data, err := EncodeSnapshot(b)
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, SnapshotSchema, env["schema"])
	assert.EqualValues(t, SnapshotVersion, env["version"])

	got, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, b.Key(), got.Key())
	assert.Equal(t, b.DisplayName, got.DisplayName)
	require.Len(t, got.Records, 3)
	assert.True(t, got.Records[0].Date.Time.Equal(b.Records[0].Date.Time))
	assert.False(t, got.Records[2].Date.Valid)
	assert.True(t, got.UploadedAt.Equal(b.UploadedAt))
	assert.Equal(t, b.Analysis.TotalRevenue, got.Analysis.TotalRevenue)
}

func TestDecodeSnapshot_Rejects(t *testing.T) {
	valid := func() MonthlyBucket {
		return MonthlyBucket{CreatorID: "c", Year: 2024, Month: 1, UploadedAt: time.Unix(0, 0).UTC()}
	}
	goodBody, err := json.Marshal(valid())
	require.NoError(t, err)

	cases := []struct {
		name string
		data string
		want error
	}{
		{"wrong schema", `{"schema":"other","version":1,"bucket":` + string(goodBody) + `}`, ErrSchemaMismatch},
		{"wrong version", `{"schema":"fanrevenue.monthly_bucket","version":2,"bucket":` + string(goodBody) + `}`, ErrSchemaMismatch},
		{"missing tag", string(goodBody), ErrSchemaMismatch},
		{"bad month", `{"schema":"fanrevenue.monthly_bucket","version":1,"bucket":{"creatorId":"c","year":2024,"month":0}}`, ErrInvalidKey},
		{"empty creator", `{"schema":"fanrevenue.monthly_bucket","version":1,"bucket":{"creatorId":"","year":2024,"month":1}}`, ErrInvalidKey},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tc.data))
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err = DecodeSnapshot([]byte(`{"schema":"fanrevenue.monthly_bucket","version":1,"bucket":{"creatorId":"c","year":2024,"month":1,"extra":true}}`))
	assert.Error(t, err)

	_, err = DecodeSnapshot([]byte(`not json`))
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	k, err := NewKey("creator", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "2024-03", k.Period())
	assert.Equal(t, "creator/2024-03", k.String())

	_, err = NewKey("creator", 0, 3)
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, err, core.ErrInvalidYear)
}
